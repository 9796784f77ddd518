// internal/source/types.go
package source

import "time"

// ReadBlock describes one Modbus read geometry.
// Geometry only: no semantics.
type ReadBlock struct {
	FC       uint8
	Address  uint16
	Quantity uint16
}

// Reading is the result of one poll cycle for one value.
type Reading struct {
	Handle uint8
	At     time.Time

	// Payload is the raw read, registers big-endian, bits packed LSB first.
	Payload []byte
	Err     error // non-nil means the poll cycle failed
}
