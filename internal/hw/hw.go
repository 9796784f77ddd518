// internal/hw/hw.go
package hw

// IRQ abstracts the core's global interrupt mask.
// Disable masks interrupts and reports whether they were already masked.
type IRQ interface {
	Disable() (wasMasked bool)
	Enable()
}

// CriticalSection is a scoped interrupt mask.
// Exit restores the mask state captured on entry; it never unmasks
// a region that was already masked by the caller.
type CriticalSection struct {
	irq       IRQ
	wasMasked bool
}

// Enter masks interrupts and returns the section to Exit.
// Use as: defer hw.Enter(irq).Exit()
func Enter(irq IRQ) CriticalSection {
	return CriticalSection{irq: irq, wasMasked: irq.Disable()}
}

// Exit restores the prior interrupt mask.
func (cs CriticalSection) Exit() {
	if !cs.wasMasked {
		cs.irq.Enable()
	}
}

// Task is a peripheral task line that can be pulsed by a hardware event
// without software involvement.
type Task interface {
	Trigger()
}

// TaskFunc adapts a function to a Task.
type TaskFunc func()

func (f TaskFunc) Trigger() { f() }
