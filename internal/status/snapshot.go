// internal/status/snapshot.go
package status

// ValueSnapshot represents exactly what the exporter is allowed to deliver
// for one value. It contains no logic and no memory of the past.
type ValueSnapshot struct {
	Handle     uint8
	Flags      uint16
	Version    uint16
	Checksum   uint32
	OriginType uint8
	Origin     [6]byte
}

// Snapshot is the state of every value at one instant, ordered by handle.
type Snapshot []ValueSnapshot
