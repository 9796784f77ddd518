// internal/hw/sim/timer.go
package sim

import "github.com/tamzrod/mesh-versioner/internal/hw"

// Channels is the number of compare channels on the simulated peripheral.
// Channels 0-2 belong to the timer scheduler, channel 3 marks the end of the
// current radio timeslot.
const Channels = 4

// ChannelWindowEnd is the compare channel that signals the window deadline.
const ChannelWindowEnd = 3

type channel struct {
	cc    uint32
	event bool
	inten bool
	task  hw.Task
}

// Timer is a single-core simulation of a 1 MHz timer peripheral with compare
// channels, compare events, per-channel interrupt enable, a capture register
// and event->task shortcuts.
//
// Timer is also the core's interrupt mask (hw.IRQ): an interrupt raised
// while masked stays pending and is delivered on unmask.
//
// Not goroutine-safe. Everything that touches a Timer runs on the core
// goroutine.
type Timer struct {
	counter  uint32
	ch       [Channels]channel
	captured uint32
	running  bool

	masked  bool
	pending bool
	inISR   bool
	handler func()
	thread  func()
}

// NewTimer returns a stopped timer.
func NewTimer() *Timer {
	return &Timer{}
}

// SetHandler installs the interrupt vector.
func (t *Timer) SetHandler(fn func()) {
	t.handler = fn
}

// SetThread installs the thread-mode work (the deferred event queue) that
// runs after every interrupt entry, at the tick of the match that raised it.
func (t *Timer) SetThread(fn func()) {
	t.thread = fn
}

// RunThread runs the thread-mode work at the current tick unless an
// interrupt is being serviced or the core is masked.
func (t *Timer) RunThread() {
	if t.thread == nil || t.inISR || t.masked {
		return
	}
	t.thread()
}

// Start resets the peripheral for a new window of windowLen ticks.
// Compare values, events, interrupt enables and shortcuts do not survive.
func (t *Timer) Start(windowLen uint32) {
	t.counter = 0
	t.captured = 0
	t.pending = false
	for i := range t.ch {
		t.ch[i] = channel{}
	}
	t.ch[ChannelWindowEnd].cc = windowLen
	t.running = true
}

// Stop halts the counter and closes the window.
func (t *Timer) Stop() {
	t.ch[ChannelWindowEnd].event = true
	t.running = false
}

// Running reports whether the counter is advancing.
func (t *Timer) Running() bool { return t.running }

// Counter returns the raw counter without a capture.
func (t *Timer) Counter() uint32 { return t.counter }

// AdvanceTo moves the counter forward to tick, signaling every compare match
// on the way in time order. Matches on the same tick are raised in a single
// interrupt entry, followed by the thread-mode work, so compares armed by that
// work are matched later in the same advance.
func (t *Timer) AdvanceTo(tick uint32) {
	for t.running && tick > t.counter {
		next := tick
		found := false
		for i := range t.ch {
			cc := t.ch[i].cc
			if cc > t.counter && cc <= next {
				next = cc
				found = true
			}
		}
		if !found {
			t.counter = tick
			return
		}

		t.counter = next
		for i := range t.ch {
			if t.ch[i].cc != next {
				continue
			}
			t.ch[i].event = true
			if t.ch[i].task != nil {
				t.ch[i].task.Trigger()
			}
		}
		if t.ch[ChannelWindowEnd].event {
			t.running = false
		}
		t.raise()
		t.RunThread()
	}
}

// ---- timer.Hardware ----

func (t *Timer) SetCompare(ch int, ticks uint32) {
	if valid(ch) {
		t.ch[ch].cc = ticks
	}
}

func (t *Timer) Compare(ch int) uint32 {
	if !valid(ch) {
		return 0
	}
	return t.ch[ch].cc
}

func (t *Timer) EventSignaled(ch int) bool {
	return valid(ch) && t.ch[ch].event
}

func (t *Timer) ClearEvent(ch int) {
	if valid(ch) {
		t.ch[ch].event = false
	}
}

func (t *Timer) EnableInterrupt(ch int) {
	if valid(ch) {
		t.ch[ch].inten = true
	}
}

func (t *Timer) DisableInterrupt(ch int) {
	if valid(ch) {
		t.ch[ch].inten = false
	}
}

// InterruptEnabled is exposed for tests.
func (t *Timer) InterruptEnabled(ch int) bool {
	return valid(ch) && t.ch[ch].inten
}

func (t *Timer) Capture() uint32 {
	t.captured = t.counter
	return t.captured
}

func (t *Timer) Connect(ch int, task hw.Task) {
	if valid(ch) {
		t.ch[ch].task = task
	}
}

func (t *Timer) Disconnect(ch int) {
	if valid(ch) {
		t.ch[ch].task = nil
	}
}

// Connected is exposed for tests.
func (t *Timer) Connected(ch int) bool {
	return valid(ch) && t.ch[ch].task != nil
}

func (t *Timer) WindowOpen() bool {
	return t.running && !t.ch[ChannelWindowEnd].event
}

// ---- hw.IRQ ----

func (t *Timer) Disable() bool {
	was := t.masked
	t.masked = true
	return was
}

func (t *Timer) Enable() {
	t.masked = false
	if t.pending {
		t.dispatch()
	}
}

// Masked reports the current mask state.
func (t *Timer) Masked() bool { return t.masked }

func (t *Timer) raise() {
	for i := range t.ch {
		if t.ch[i].event && t.ch[i].inten {
			t.pending = true
			break
		}
	}
	if t.pending && !t.masked {
		t.dispatch()
	}
}

// dispatch runs the vector once with interrupts masked, as the core would
// for a same-priority handler.
func (t *Timer) dispatch() {
	if t.inISR || t.handler == nil {
		return
	}
	t.pending = false
	t.inISR = true
	t.masked = true
	t.handler()
	t.masked = false
	t.inISR = false
}

func valid(ch int) bool {
	return ch >= 0 && ch < Channels
}
