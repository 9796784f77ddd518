// internal/identity/address.go
package identity

import (
	"fmt"
	"net"
)

// Address types, as carried in the one-byte type field.
const (
	AddressPublic       uint8 = 0
	AddressRandomStatic uint8 = 1
)

// Address identifies a mesh node. It is comparable with ==.
type Address struct {
	Type  uint8
	Bytes [6]byte
}

// Provider yields this node's own address.
type Provider interface {
	LocalAddress() Address
}

// Static is a Provider with a fixed address.
type Static Address

func (s Static) LocalAddress() Address { return Address(s) }

// ParseAddress parses a colon-separated 6-byte address ("c0:11:22:33:44:55").
func ParseAddress(s string, typ uint8) (Address, error) {
	hwAddr, err := net.ParseMAC(s)
	if err != nil {
		return Address{}, fmt.Errorf("identity: parse address %q: %w", s, err)
	}
	if len(hwAddr) != 6 {
		return Address{}, fmt.Errorf("identity: address %q must be 6 bytes, got %d", s, len(hwAddr))
	}

	a := Address{Type: typ}
	copy(a.Bytes[:], hwAddr)
	return a, nil
}

func (a Address) String() string {
	return net.HardwareAddr(a.Bytes[:]).String()
}

// IsZero reports whether the address was never set.
func (a Address) IsZero() bool {
	return a == Address{}
}
