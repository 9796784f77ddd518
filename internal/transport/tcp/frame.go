// internal/transport/tcp/frame.go
package tcp

import (
	"errors"
	"fmt"
	"io"

	"github.com/tamzrod/mesh-versioner/internal/transport"
)

const (
	magicHi byte = 0x4D // 'M'
	magicLo byte = 0x56 // 'V'

	wireV1 byte = 0x01

	respOK       byte = 0x00
	respRejected byte = 0x01
)

// HeaderSize is the fixed frame header length.
const HeaderSize = 14

// MaxPayload is the largest payload a frame carries.
const MaxPayload = 255

//
// ---- Frame v1 layout (LOCKED) ----
//
// 0–1   Magic "MV"
// 2     Wire version (0x01)
// 3     Handle
// 4–5   Version (big-endian)
// 6     Origin address type
// 7–12  Origin address
// 13    Payload length
// 14+   Payload
//

// EncodeFrame builds the wire form of f.
func EncodeFrame(f transport.Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, fmt.Errorf("tcp frame: payload %d bytes exceeds %d", len(f.Payload), MaxPayload)
	}

	b := make([]byte, HeaderSize, HeaderSize+len(f.Payload))
	b[0] = magicHi
	b[1] = magicLo
	b[2] = wireV1
	b[3] = f.Handle
	putU16(b[4:6], f.Version)
	b[6] = f.Origin.Type
	copy(b[7:13], f.Origin.Bytes[:])
	b[13] = byte(len(f.Payload))

	return append(b, f.Payload...), nil
}

// ReadFrame reads exactly one frame from r.
func ReadFrame(r io.Reader) (transport.Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return transport.Frame{}, err
	}
	if hdr[0] != magicHi || hdr[1] != magicLo {
		return transport.Frame{}, errors.New("tcp frame: bad magic")
	}
	if hdr[2] != wireV1 {
		return transport.Frame{}, fmt.Errorf("tcp frame: unsupported wire version 0x%02x", hdr[2])
	}

	f := transport.Frame{
		Handle:  hdr[3],
		Version: getU16(hdr[4:6]),
	}
	f.Origin.Type = hdr[6]
	copy(f.Origin.Bytes[:], hdr[7:13])

	if n := int(hdr[13]); n > 0 {
		f.Payload = make([]byte, n)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return transport.Frame{}, fmt.Errorf("tcp frame: read payload: %w", err)
		}
	}
	return f, nil
}

//
// ---- helpers ----
//

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func putU16(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}

func getU16(src []byte) uint16 {
	return uint16(src[0])<<8 | uint16(src[1])
}
