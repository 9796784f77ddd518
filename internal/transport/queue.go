// internal/transport/queue.go
package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/tamzrod/mesh-versioner/internal/identity"
)

// ErrQueueFull is backpressure: the frame was not queued and the caller
// should wait for the OnAvailable notification.
var ErrQueueFull = errors.New("transport: queue full")

// Frame is one value announcement.
type Frame struct {
	Handle  uint8
	Version uint16
	Origin  identity.Address
	Payload []byte
}

// ValueSource supplies the payload announced for a handle.
type ValueSource interface {
	Value(handle uint8) []byte
}

// Sender delivers a frame to the network.
type Sender interface {
	Send(ctx context.Context, f Frame) error
}

// Queue is the bounded transmit queue between the engine and a Sender.
// Transmit never blocks.
type Queue struct {
	frames      chan Frame
	values      ValueSource
	full        atomic.Bool
	onAvailable func()
	log         *slog.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewQueue creates a queue holding at most depth frames.
func NewQueue(depth int, values ValueSource, log *slog.Logger) (*Queue, error) {
	if depth <= 0 {
		return nil, errors.New("transport: queue depth must be > 0")
	}
	if values == nil {
		return nil, errors.New("transport: value source required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		frames: make(chan Frame, depth),
		values: values,
		log:    log,
	}, nil
}

// OnAvailable registers the callback run after a full queue frees a slot.
// Must be set before Run.
func (q *Queue) OnAvailable(fn func()) {
	q.onAvailable = fn
}

// Transmit queues an announcement of handle at version.
func (q *Queue) Transmit(handle uint8, version uint16, origin identity.Address) error {
	f := Frame{
		Handle:  handle,
		Version: version,
		Origin:  origin,
		Payload: q.values.Value(handle),
	}

	select {
	case q.frames <- f:
		return nil
	default:
		q.full.Store(true)
		return ErrQueueFull
	}
}

// Len returns the number of queued frames.
func (q *Queue) Len() int { return len(q.frames) }

// Sent returns the number of frames delivered without error.
func (q *Queue) Sent() uint64 { return q.sent.Load() }

// Dropped returns the number of frames the sender failed to deliver.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Run delivers queued frames until ctx is done. One goroutine per queue.
func (q *Queue) Run(ctx context.Context, s Sender) error {
	for {
		select {
		case <-ctx.Done():
			q.log.Info("transport stopped", "sent", q.Sent(), "dropped", q.Dropped(), "queued", q.Len())
			return ctx.Err()
		case f := <-q.frames:
			if q.full.CompareAndSwap(true, false) && q.onAvailable != nil {
				q.onAvailable()
			}
			if err := s.Send(ctx, f); err != nil {
				q.dropped.Add(1)
				q.log.Warn("transport send failed", "handle", f.Handle, "version", f.Version, "err", err)
				continue
			}
			q.sent.Add(1)
		}
	}
}
