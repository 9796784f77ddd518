// internal/timeslot/timeslot.go
package timeslot

import (
	"errors"

	"github.com/tamzrod/mesh-versioner/internal/hw/sim"
)

// Allocator reports the bounds of the currently granted radio timeslot in
// absolute microseconds.
type Allocator interface {
	GlobalTime() uint64
	EndTime() uint64
}

// Simulator grants fixed-length windows at a fixed period and drives the
// simulated timer through them. The timer counter restarts at 0 at every
// grant; GlobalTime is the absolute time of that 0.
type Simulator struct {
	timer  *sim.Timer
	length uint64
	period uint64

	global    uint64
	nextGrant uint64
	active    bool
	grants    uint64

	hooks []func()
}

// NewSimulator creates a simulator whose first grant is at absolute time 0.
func NewSimulator(t *sim.Timer, length, period uint32) (*Simulator, error) {
	if t == nil {
		return nil, errors.New("timeslot: timer required")
	}
	if length == 0 {
		return nil, errors.New("timeslot: length must be > 0")
	}
	if period < length {
		return nil, errors.New("timeslot: period must be >= length")
	}
	return &Simulator{
		timer:  t,
		length: uint64(length),
		period: uint64(period),
	}, nil
}

// OnBegin registers a hook run at the start of every granted window. Work the
// hooks defer runs at counter 0, before the window advances.
func (s *Simulator) OnBegin(fn func()) {
	s.hooks = append(s.hooks, fn)
}

func (s *Simulator) GlobalTime() uint64 { return s.global }

func (s *Simulator) EndTime() uint64 { return s.global + s.length }

// Active reports whether a window is open.
func (s *Simulator) Active() bool { return s.active }

// Grants returns the number of windows granted so far.
func (s *Simulator) Grants() uint64 { return s.grants }

// Advance moves simulated time to now (absolute µs): it runs the open window
// up to now or its end, then opens the next window if one is due.
// Windows that were missed entirely are skipped.
func (s *Simulator) Advance(now uint64) {
	if s.active {
		s.advanceWindow(now)
	}
	if s.active || now < s.nextGrant {
		return
	}

	for s.nextGrant+s.period <= now {
		s.nextGrant += s.period
	}
	s.grant(s.nextGrant)
	s.advanceWindow(now)
}

func (s *Simulator) grant(at uint64) {
	s.global = at
	s.nextGrant = at + s.period
	s.active = true
	s.grants++

	s.timer.Start(uint32(s.length))
	for _, fn := range s.hooks {
		fn()
	}
	s.timer.RunThread()
}

func (s *Simulator) advanceWindow(now uint64) {
	rel := uint64(0)
	if now > s.global {
		rel = now - s.global
	}
	if rel > s.length {
		rel = s.length
	}
	s.timer.AdvanceTo(uint32(rel))
	if !s.timer.WindowOpen() {
		s.timer.Stop()
		s.active = false
	}
}
