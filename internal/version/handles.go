// internal/version/handles.go
package version

import "github.com/tamzrod/mesh-versioner/internal/identity"

// SetCharHandle stores the opaque correlation handle for a value.
func (e *Engine) SetCharHandle(handle, charHandle uint8) error {
	md, err := e.lookup(handle)
	if err != nil {
		return err
	}
	md.charHandle = charHandle
	return nil
}

// CharHandle returns the opaque correlation handle for a value.
func (e *Engine) CharHandle(handle uint8) (uint8, error) {
	md, err := e.lookup(handle)
	if err != nil {
		return 0, err
	}
	return md.charHandle, nil
}

// Origin returns the address of the node that produced the held version.
func (e *Engine) Origin(handle uint8) (identity.Address, error) {
	md, err := e.lookup(handle)
	if err != nil {
		return identity.Address{}, err
	}
	return md.origin, nil
}

// Enable puts a value (back) into the sweeps with a fresh Trickle timer.
func (e *Engine) Enable(handle uint8) error {
	md, err := e.lookup(handle)
	if err != nil {
		return err
	}

	md.trickle.Reset(e.absNow())
	md.flags |= FlagUsed | FlagInitialized
	return e.requestSweep()
}

// Disable removes a value from the sweeps. Its metadata, including the
// initialized flag and version history, is kept.
func (e *Engine) Disable(handle uint8) error {
	md, err := e.lookup(handle)
	if err != nil {
		return err
	}
	md.flags &^= FlagUsed
	return nil
}

// Info returns a copy of one value's metadata.
func (e *Engine) Info(handle uint8) (Info, error) {
	md, err := e.lookup(handle)
	if err != nil {
		return Info{}, err
	}
	return e.info(handle, md), nil
}

// Snapshot copies the metadata of every handle, in handle order.
func (e *Engine) Snapshot() []Info {
	out := make([]Info, 0, len(e.md))
	for i := range e.md {
		out = append(out, e.info(uint8(i+1), &e.md[i]))
	}
	return out
}

func (e *Engine) info(handle uint8, md *metadata) Info {
	return Info{
		Handle:     handle,
		Version:    md.version,
		CharHandle: md.charHandle,
		Flags:      md.flags,
		Checksum:   md.checksum,
		Origin:     md.origin,
		NextTx:     md.trickle.T,
		Interval:   md.trickle.Interval(),
	}
}
