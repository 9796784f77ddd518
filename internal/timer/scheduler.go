// internal/timer/scheduler.go
package timer

import (
	"log/slog"

	"github.com/tamzrod/mesh-versioner/internal/event"
	"github.com/tamzrod/mesh-versioner/internal/hw"
)

// SlotCount is the number of compare channels multiplexed by the scheduler.
const SlotCount = 3

// Callback receives the compare value the channel fired at.
type Callback = event.Callback

// Hardware is the register-level view of the timer peripheral.
// Channel indices match scheduler slots.
type Hardware interface {
	SetCompare(ch int, ticks uint32)
	Compare(ch int) uint32
	EventSignaled(ch int) bool
	ClearEvent(ch int)
	EnableInterrupt(ch int)
	DisableInterrupt(ch int)
	Capture() uint32
	Connect(ch int, task hw.Task)
	Disconnect(ch int)

	// WindowOpen reports whether the current radio timeslot still owns the
	// peripheral. Outside it, registers must not be touched.
	WindowOpen() bool
}

// Deferrer accepts work to be run later outside interrupt context.
type Deferrer interface {
	Push(ev event.Event) error
}

type slot struct {
	cb   Callback
	sync bool
}

// Scheduler provides ordered, cancellable one-shot callbacks on the three
// compare channels of one timer peripheral.
//
// Every operation runs inside a critical section. Order* calls made outside
// the scheduling window are dropped without touching hardware.
type Scheduler struct {
	hw     Hardware
	irq    hw.IRQ
	events Deferrer
	log    *slog.Logger

	slots  [SlotCount]slot
	active uint8
}

// New creates a scheduler. The caller wires HandleInterrupt to the
// peripheral's interrupt vector.
func New(h Hardware, irq hw.IRQ, events Deferrer, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		hw:     h,
		irq:    irq,
		events: events,
		log:    log,
	}
}

// Order fires cb from the deferred queue when the counter reaches at.
func (s *Scheduler) Order(idx uint8, at uint32, cb Callback) {
	defer hw.Enter(s.irq).Exit()
	s.arm(idx, at, cb, false)
}

// OrderSync fires cb directly in interrupt context.
func (s *Scheduler) OrderSync(idx uint8, at uint32, cb Callback) {
	defer hw.Enter(s.irq).Exit()
	s.arm(idx, at, cb, true)
}

// OrderWithTrigger is Order plus a hardware shortcut that pulses task on the
// compare match, ahead of any software dispatch.
func (s *Scheduler) OrderWithTrigger(idx uint8, at uint32, cb Callback, task hw.Task) {
	defer hw.Enter(s.irq).Exit()
	if s.arm(idx, at, cb, false) {
		s.hw.Connect(int(idx), task)
	}
}

// OrderTriggerOnly pulses task on the compare match without a software
// callback. Any callback previously held by the slot is released.
func (s *Scheduler) OrderTriggerOnly(idx uint8, at uint32, task hw.Task) {
	defer hw.Enter(s.irq).Exit()
	if idx >= SlotCount || !s.hw.WindowOpen() {
		return
	}

	ch := int(idx)
	s.hw.ClearEvent(ch)
	s.hw.DisableInterrupt(ch)
	s.hw.SetCompare(ch, at)
	s.release(idx)
	s.hw.Connect(ch, task)
}

// Abort cancels a pending order. Aborting an idle slot is a no-op.
func (s *Scheduler) Abort(idx uint8) {
	defer hw.Enter(s.irq).Exit()
	if idx >= SlotCount {
		return
	}

	s.release(idx)
	if !s.hw.WindowOpen() {
		return
	}
	ch := int(idx)
	s.hw.DisableInterrupt(ch)
	s.hw.Disconnect(ch)
}

// Now captures the current tick. It returns 0 outside the scheduling window,
// which means no reading was taken.
func (s *Scheduler) Now() uint32 {
	defer hw.Enter(s.irq).Exit()
	if !s.hw.WindowOpen() {
		return 0
	}
	return s.hw.Capture()
}

// Active reports whether a callback is pending on the slot.
func (s *Scheduler) Active(idx uint8) bool {
	defer hw.Enter(s.irq).Exit()
	return idx < SlotCount && s.active&(1<<idx) != 0
}

// HandleInterrupt is the peripheral's interrupt vector. Channels are scanned
// in index order, so lower slots dispatch first when several fire together.
func (s *Scheduler) HandleInterrupt() {
	for i := uint8(0); i < SlotCount; i++ {
		ch := int(i)
		if s.active&(1<<i) == 0 || !s.hw.EventSignaled(ch) {
			continue
		}

		// Release ownership before invoking: the callback may re-arm this slot.
		sl := s.slots[i]
		s.release(i)
		s.hw.DisableInterrupt(ch)

		ts := s.hw.Compare(ch)
		if sl.cb == nil {
			continue
		}
		if sl.sync {
			sl.cb(ts)
			continue
		}
		if err := s.events.Push(event.Event{Callback: sl.cb, Timestamp: ts}); err != nil {
			s.log.Warn("timer dispatch dropped", "slot", i, "timestamp", ts, "err", err)
		}
	}
}

func (s *Scheduler) arm(idx uint8, at uint32, cb Callback, sync bool) bool {
	if idx >= SlotCount || !s.hw.WindowOpen() {
		return false
	}

	ch := int(idx)
	s.hw.ClearEvent(ch)
	s.hw.DisableInterrupt(ch)
	s.hw.Disconnect(ch)
	s.hw.SetCompare(ch, at)
	s.hw.EnableInterrupt(ch)

	s.slots[idx] = slot{cb: cb, sync: sync}
	s.active |= 1 << idx
	return true
}

func (s *Scheduler) release(idx uint8) {
	s.slots[idx] = slot{}
	s.active &^= 1 << idx
}
