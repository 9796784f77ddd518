// internal/status/encode.go
package status

// Encode converts a ValueSnapshot into a full value metadata block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(v ValueSnapshot) []uint16 {
	regs := make([]uint16, RegsPerValue)

	regs[RegFlags] = v.Flags
	regs[RegVersion] = v.Version
	regs[RegChecksumHi] = uint16(v.Checksum >> 16)
	regs[RegChecksumLo] = uint16(v.Checksum)
	regs[RegOriginType] = uint16(v.OriginType)

	for i := 0; i < RegOriginRegs; i++ {
		regs[RegOriginStart+i] = uint16(v.Origin[2*i])<<8 | uint16(v.Origin[2*i+1])
	}

	return regs
}

// BlockOffset returns the register offset of a handle's block relative to
// the export base address. Handles are 1-indexed.
func BlockOffset(handle uint8) uint16 {
	if handle == 0 {
		return 0
	}
	return uint16(handle-1) * RegsPerValue
}
