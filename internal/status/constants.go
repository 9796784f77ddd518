// internal/status/constants.go
package status

// Value Metadata Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// RegsPerValue is the fixed number of holding registers per value.
const RegsPerValue = 8

// ---- REGISTER INDICES ----

// RegFlags holds the metadata flag bits.
const RegFlags = 0

// RegVersion holds the lollipop version.
const RegVersion = 1

// RegChecksumHi and RegChecksumLo hold the 32-bit payload checksum, high word first.
const RegChecksumHi = 2
const RegChecksumLo = 3

// RegOriginType holds the origin address type.
const RegOriginType = 4

// ---- ORIGIN ADDRESS ----

// RegOriginStart is the first register of the origin address.
// Origin address is always placed at the END of the block.
const RegOriginStart = 5

// RegOriginRegs is the number of registers holding the 6 address bytes.
const RegOriginRegs = 3

// RegOriginEnd is the last register of the origin address (inclusive).
const RegOriginEnd = RegOriginStart + RegOriginRegs - 1

// ---- FLAG BITS ----

// FlagUsed marks a value taking part in sweeps.
const FlagUsed uint16 = 1 << 0

// FlagInitialized marks a value that has held a version.
const FlagInitialized uint16 = 1 << 1

// FlagIsOrigin marks a value whose held version was produced locally.
const FlagIsOrigin uint16 = 1 << 2
