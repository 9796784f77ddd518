// internal/trickle/trickle.go
package trickle

import (
	"errors"
	"math/rand"
)

// maxDoublings keeps IMax representable in microseconds.
const maxDoublings = 32

// Params are shared by every timer of one engine.
type Params struct {
	IMin uint64 // minimum interval, µs
	IMax uint64 // maximum interval, µs
	K    uint32 // redundancy constant
}

// NewParams derives IMax = IMin * 2^doublings. Doublings above 32 are clamped.
func NewParams(iMin uint64, doublings uint32, k uint32) (Params, error) {
	if iMin < 2 {
		return Params{}, errors.New("trickle: minimum interval must be >= 2")
	}
	if k == 0 {
		return Params{}, errors.New("trickle: redundancy constant must be > 0")
	}
	if doublings > maxDoublings {
		doublings = maxDoublings
	}
	return Params{IMin: iMin, IMax: iMin << doublings, K: k}, nil
}

// Timer is one Trickle instance.
//
// T is the absolute time the owner must call TxTimeout at. Within one
// interval T first points at the randomized transmission point, then at the
// interval end.
type Timer struct {
	T uint64

	params *Params
	rng    *rand.Rand

	i          uint64 // current interval length
	start      uint64 // current interval start
	c          uint32 // consistent receptions this interval
	txDone     bool   // transmission point of this interval has passed
	lastNow    uint64 // now of the latest TxTimeout
	sent       uint32 // transmissions registered, lifetime
	suppressed uint32 // transmission points skipped because c >= k, lifetime
}

// New creates an idle timer. It does nothing until Reset is called.
func New(p *Params, rng *rand.Rand) *Timer {
	return &Timer{params: p, rng: rng}
}

// Reset starts over from the minimum interval at now.
func (t *Timer) Reset(now uint64) {
	t.i = t.params.IMin
	t.begin(now)
}

// RxConsistent counts a consistent reception.
func (t *Timer) RxConsistent(uint64) {
	t.c++
}

// RxInconsistent resets the timer unless it is already at the minimum
// interval.
func (t *Timer) RxInconsistent(now uint64) {
	if t.i != t.params.IMin {
		t.Reset(now)
	}
}

// TxTimeout is called once T has passed. It reports whether the owner should
// transmit. On true the owner calls TxRegister once the transmission is
// queued; until then T stays due. Otherwise T is moved past now.
func (t *Timer) TxTimeout(now uint64) bool {
	t.lastNow = now
	if t.i == 0 {
		// never reset
		t.Reset(now)
		return false
	}

	if t.txDone {
		t.nextInterval(now)
		return false
	}
	if t.c < t.params.K {
		return true
	}
	t.suppressed++
	t.endTx()
	return false
}

// TxRegister records a transmission and moves T to the interval end, or into
// the next interval when the end already passed.
func (t *Timer) TxRegister() {
	t.sent++
	t.endTx()
}

// Interval returns the current interval length.
func (t *Timer) Interval() uint64 { return t.i }

// Counter returns the consistent-reception counter of the current interval.
func (t *Timer) Counter() uint32 { return t.c }

// Sent returns the number of registered transmissions.
func (t *Timer) Sent() uint32 { return t.sent }

// Suppressed returns the number of suppressed transmission points.
func (t *Timer) Suppressed() uint32 { return t.suppressed }

func (t *Timer) endTx() {
	t.txDone = true
	t.T = t.start + t.i
	if t.T <= t.lastNow {
		t.nextInterval(t.lastNow)
	}
}

// nextInterval doubles I up to IMax and starts a new interval at now.
func (t *Timer) nextInterval(now uint64) {
	t.i *= 2
	if t.i > t.params.IMax {
		t.i = t.params.IMax
	}
	t.begin(now)
}

func (t *Timer) begin(now uint64) {
	t.start = now
	t.c = 0
	t.txDone = false

	half := t.i / 2
	t.T = now + half
	if span := t.i - half; span > 0 {
		t.T += uint64(t.rng.Int63n(int64(span)))
	}
}
