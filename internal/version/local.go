// internal/version/local.go
package version

import (
	"errors"
	"fmt"

	"github.com/tamzrod/mesh-versioner/internal/event"
)

// LocalUpdate records a new locally produced version of handle and requests
// an immediate sweep. It returns StatusUpdated when the value was already
// initialized and StatusNew on its first local update.
func (e *Engine) LocalUpdate(handle uint8) (Status, error) {
	md, err := e.lookup(handle)
	if err != nil {
		return StatusUnknown, err
	}
	now := e.absNow()

	st := StatusNew
	if md.flags.Has(FlagInitialized) {
		st = StatusUpdated
		md.trickle.RxInconsistent(now)
	} else {
		md.trickle.Reset(now)
	}

	md.flags |= FlagUsed | FlagInitialized | FlagIsOrigin
	md.version = nextVersion(md.version)
	md.checksum = ChecksumInvalid
	md.origin = e.id.LocalAddress()

	if err := e.requestSweep(); err != nil {
		return st, err
	}
	return st, nil
}

// OnTimeslotBegin orders the first sweep of a freshly granted timeslot.
func (e *Engine) OnTimeslotBegin() error {
	return e.OrderUpdate(e.opts.StartupDelay)
}

// OrderUpdate queues a sweep as if run at ts ticks into the timeslot.
func (e *Engine) OrderUpdate(ts uint32) error {
	return e.push(event.Event{Callback: e.transmitAll, Timestamp: ts})
}

// Resume queues a sweep stamped with the tick it runs at. The transport calls
// it once backpressure clears. Safe from any goroutine.
func (e *Engine) Resume() error {
	return e.requestSweep()
}

// requestSweep queues a sweep at the current tick. The tick is read when
// the sweep runs, on the core goroutine.
func (e *Engine) requestSweep() error {
	return e.push(event.Event{
		Callback: func(uint32) { e.transmitAll(e.timer.Now()) },
	})
}

func (e *Engine) push(ev event.Event) error {
	if err := e.events.Push(ev); err != nil {
		if errors.Is(err, event.ErrFull) {
			return fmt.Errorf("%w: %v", ErrNoMemory, err)
		}
		return err
	}
	return nil
}
