// internal/version/metadata.go
package version

import (
	"math"

	"github.com/tamzrod/mesh-versioner/internal/identity"
	"github.com/tamzrod/mesh-versioner/internal/trickle"
)

// LollipopCeiling splits the version space: below it versions compare
// ordinally, at or above it they compare circularly. A counter that runs
// past 0xFFFF restarts at the ceiling, never at 0.
const LollipopCeiling uint16 = 200

// ChecksumInvalid marks a locally modified value whose checksum has not been
// recomputed yet.
const ChecksumInvalid uint32 = 0xFFFFFFFF

// MaxValueCount is the hard ceiling on handles per engine.
const MaxValueCount = math.MaxUint8

// aheadLimit is the largest circular separation still counted as newer.
const aheadLimit = (math.MaxUint16 - LollipopCeiling) / 2

// Flags are independent metadata bits.
type Flags uint8

const (
	FlagUsed Flags = 1 << iota
	FlagInitialized
	FlagIsOrigin
)

func (f Flags) Has(x Flags) bool { return f&x == x }

type metadata struct {
	version    uint16
	charHandle uint8
	flags      Flags
	checksum   uint32
	origin     identity.Address
	trickle    *trickle.Timer
}

// Info is a read-only copy of one value's metadata.
type Info struct {
	Handle     uint8
	Version    uint16
	CharHandle uint8
	Flags      Flags
	Checksum   uint32
	Origin     identity.Address
	NextTx     uint64
	Interval   uint64
}

// nextVersion is the lollipop increment.
func nextVersion(v uint16) uint16 {
	if v == math.MaxUint16 {
		return LollipopCeiling
	}
	return v + 1
}

// separation is the distance from stored to incoming on the lollipop ring,
// whose circular part skips [0, LollipopCeiling).
func separation(stored, incoming uint16) uint16 {
	if incoming >= stored {
		return incoming - stored
	}
	return incoming - stored - LollipopCeiling
}

// newer reports whether incoming supersedes stored.
func newer(stored, incoming uint16) bool {
	if stored < LollipopCeiling {
		return incoming > stored
	}
	return incoming >= LollipopCeiling && separation(stored, incoming) < aheadLimit
}
