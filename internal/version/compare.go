// internal/version/compare.go
package version

// Compare classifies an incoming (version, checksum) for handle against the
// stored metadata. It has no side effects.
//
// originIsSelf tells whether the update claims this node as its origin.
func (e *Engine) Compare(handle uint8, version uint16, checksum uint32, originIsSelf bool) Status {
	md, err := e.lookup(handle)
	if err != nil {
		return StatusUnknown
	}

	if version == md.version {
		// Version 0 is the fresh-start value and always matches.
		if (originIsSelf && md.origin == e.id.LocalAddress()) ||
			checksum == md.checksum ||
			version == 0 {
			return StatusSame
		}
		return StatusConflicting
	}

	if !md.flags.Has(FlagInitialized) {
		return StatusNew
	}
	if newer(md.version, version) {
		return StatusUpdated
	}
	return StatusOld
}
