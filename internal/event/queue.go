// internal/event/queue.go
package event

import (
	"errors"
	"sync"
)

// ErrFull is returned by Push when the queue has no free entries.
var ErrFull = errors.New("event queue: full")

// Callback is deferred work. The timestamp is ticks relative to the start of
// the current radio timeslot.
type Callback func(timestamp uint32)

// Event is one unit of deferred work.
type Event struct {
	Callback  Callback
	Timestamp uint32
}

// Queue is a bounded FIFO of deferred work.
// Push is safe from any goroutine; Drain runs callbacks on the caller's
// goroutine (the core), in submission order.
type Queue struct {
	mu    sync.Mutex
	buf   []Event
	head  int
	count int
}

// New creates a queue holding at most depth events.
func New(depth int) (*Queue, error) {
	if depth <= 0 {
		return nil, errors.New("event queue: depth must be > 0")
	}
	return &Queue{buf: make([]Event, depth)}, nil
}

// Push appends an event. Events without a callback are rejected.
func (q *Queue) Push(ev Event) error {
	if ev.Callback == nil {
		return errors.New("event queue: nil callback")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.buf) {
		return ErrFull
	}
	q.buf[(q.head+q.count)%len(q.buf)] = ev
	q.count++
	return nil
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Drain runs queued events until the queue is empty and returns how many ran.
// Events pushed by a running callback are run in the same call, after
// everything queued before them.
func (q *Queue) Drain() int {
	n := 0
	for {
		ev, ok := q.pop()
		if !ok {
			return n
		}
		ev.Callback(ev.Timestamp)
		n++
	}
}

func (q *Queue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Event{}, false
	}
	ev := q.buf[q.head]
	q.buf[q.head] = Event{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return ev, true
}
