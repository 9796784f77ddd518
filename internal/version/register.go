// internal/version/register.go
package version

import (
	"fmt"

	"github.com/tamzrod/mesh-versioner/internal/identity"
)

// Reception is an observed remote update.
type Reception struct {
	Handle    uint8
	Version   uint16
	Checksum  uint32
	Origin    identity.Address
	Timestamp uint32 // ticks into the current timeslot
}

// RegisterReception applies the side effects of a classification returned by
// Compare for the same reception.
//
//	NEW          sweep now, adopt content, inconsistent
//	UPDATED      adopt content, inconsistent
//	OLD          inconsistent
//	CONFLICTING  inconsistent
//	SAME         refresh checksum, consistent
//
// Every outcome except SAME speeds up re-announcement; SAME is what lets the
// Trickle interval grow.
func (e *Engine) RegisterReception(st Status, rx Reception) error {
	md, err := e.lookup(rx.Handle)
	if err != nil {
		return err
	}
	now := e.slot.GlobalTime() + uint64(rx.Timestamp)

	switch st {
	case StatusNew:
		e.receiveNew(md, rx, now)
	case StatusUpdated:
		e.adopt(md, rx)
		e.inconsistent(md, now)
	case StatusOld, StatusConflicting:
		e.inconsistent(md, now)
	case StatusSame:
		e.consistent(md, rx, now)
	default:
		return fmt.Errorf("%w: status %s", ErrBadArgument, st)
	}
	return nil
}

func (e *Engine) receiveNew(md *metadata, rx Reception, now uint64) {
	if err := e.OrderUpdate(rx.Timestamp); err != nil {
		e.log.Warn("sweep request dropped", "handle", rx.Handle, "err", err)
	}
	e.adopt(md, rx)
	md.flags |= FlagUsed
	e.inconsistent(md, now)
}

// adopt takes over the remote content's identity.
func (e *Engine) adopt(md *metadata, rx Reception) {
	md.version = rx.Version
	md.checksum = rx.Checksum
	md.origin = rx.Origin
	if rx.Origin != e.id.LocalAddress() {
		md.flags &^= FlagIsOrigin
	}
}

func (e *Engine) inconsistent(md *metadata, now uint64) {
	md.flags |= FlagInitialized
	md.trickle.RxInconsistent(now)
}

func (e *Engine) consistent(md *metadata, rx Reception, now uint64) {
	// replaces the ChecksumInvalid left by a local update
	md.checksum = rx.Checksum
	md.trickle.RxConsistent(now)
}
