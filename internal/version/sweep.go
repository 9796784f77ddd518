// internal/version/sweep.go
package version

import (
	"errors"
	"math"

	"github.com/tamzrod/mesh-versioner/internal/transport"
)

// transmitAll is one retransmission sweep at ts ticks into the timeslot.
//
// It walks every handle once, starting where the previous sweep stopped, and
// transmits the due values Trickle does not suppress. A full transport queue
// ends the pass without moving past the blocked handle; Resume continues
// from there.
func (e *Engine) transmitAll(ts uint32) {
	if !e.initialized {
		return
	}
	now := e.slot.GlobalTime() + uint64(ts)
	n := len(e.md)

	for i := 0; i < n; i++ {
		e.cursor %= n
		md := &e.md[e.cursor]

		if md.flags.Has(FlagUsed) && md.trickle.T <= now && md.trickle.TxTimeout(now) {
			handle := uint8(e.cursor + 1)
			err := e.transport.Transmit(handle, md.version, md.origin)
			if errors.Is(err, transport.ErrQueueFull) {
				e.log.Debug("sweep paused", "handle", handle)
				break
			}
			if err != nil {
				e.log.Warn("transmit failed", "handle", handle, "version", md.version, "err", err)
			} else {
				md.trickle.TxRegister()
			}
		}

		e.cursor++
	}

	e.orderNext(now)
}

// orderNext arms the sweep timer for the earliest Trickle deadline after now,
// if it falls inside the current timeslot. Expired deadlines belong to
// transmitAll, not to the timer.
func (e *Engine) orderNext(now uint64) {
	begin := e.slot.GlobalTime()
	end := e.slot.EndTime()

	earliest := uint64(math.MaxUint64)
	for i := range e.md {
		md := &e.md[i]
		if md.flags.Has(FlagUsed) && md.trickle.T > now && md.trickle.T < earliest {
			earliest = md.trickle.T
		}
	}

	if earliest < end && earliest >= begin {
		e.timer.Order(e.opts.TimerSlot, uint32(earliest-begin), e.transmitAll)
	}
}
