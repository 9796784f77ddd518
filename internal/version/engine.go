// internal/version/engine.go
package version

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/tamzrod/mesh-versioner/internal/event"
	"github.com/tamzrod/mesh-versioner/internal/identity"
	"github.com/tamzrod/mesh-versioner/internal/timer"
	"github.com/tamzrod/mesh-versioner/internal/timeslot"
	"github.com/tamzrod/mesh-versioner/internal/trickle"
)

// DefaultOptions returns the options used by a stock node.
func DefaultOptions() Options {
	return Options{
		TimerSlot:        DefaultTimerSlot,
		TrickleDoublings: DefaultTrickleDoublings,
		TrickleK:         DefaultTrickleK,
		StartupDelay:     DefaultStartupDelay,
	}
}

// Timer is the engine's view of the timer scheduler.
type Timer interface {
	Order(slot uint8, at uint32, cb event.Callback)
	Now() uint32
}

// Deferrer queues work for the core outside interrupt context.
type Deferrer interface {
	Push(ev event.Event) error
}

// Transmitter hands a value announcement to the transport.
// transport.ErrQueueFull signals backpressure, not failure.
type Transmitter interface {
	Transmit(handle uint8, version uint16, origin identity.Address) error
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Timer     Timer
	Timeslot  timeslot.Allocator
	Events    Deferrer
	Transport Transmitter
	Identity  identity.Provider

	Rand *rand.Rand   // optional, seeds Trickle offsets
	Log  *slog.Logger // optional
}

// Options tune the engine. Zero Trickle and delay values select the defaults.
type Options struct {
	TimerSlot        uint8  // scheduler slot owned by the sweep
	TrickleDoublings uint32 // IMax = IMin * 2^doublings
	TrickleK         uint32 // redundancy constant
	StartupDelay     uint32 // µs into a new timeslot before the first sweep
}

const (
	DefaultTimerSlot        uint8  = 2
	DefaultTrickleDoublings uint32 = 10
	DefaultTrickleK         uint32 = 3
	DefaultStartupDelay     uint32 = 100
)

// Engine holds per-value version metadata and drives Trickle-paced
// retransmission of every used value.
//
// Engine is not goroutine-safe. All calls, including the sweep it schedules
// on itself, run on the core goroutine.
type Engine struct {
	timer     Timer
	slot      timeslot.Allocator
	events    Deferrer
	transport Transmitter
	id        identity.Provider
	rng       *rand.Rand
	log       *slog.Logger
	opts      Options

	initialized bool
	params      trickle.Params
	md          []metadata
	cursor      int // next handle (0-indexed) the sweep looks at
}

// New creates an uninitialized engine.
func New(deps Deps, opts Options) (*Engine, error) {
	if deps.Timer == nil || deps.Timeslot == nil || deps.Events == nil ||
		deps.Transport == nil || deps.Identity == nil {
		return nil, errors.New("version: missing dependency")
	}
	if opts.TimerSlot >= timer.SlotCount {
		return nil, fmt.Errorf("version: timer slot %d out of range", opts.TimerSlot)
	}
	if opts.TrickleDoublings == 0 {
		opts.TrickleDoublings = DefaultTrickleDoublings
	}
	if opts.TrickleK == 0 {
		opts.TrickleK = DefaultTrickleK
	}
	if opts.StartupDelay == 0 {
		opts.StartupDelay = DefaultStartupDelay
	}

	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		timer:     deps.Timer,
		slot:      deps.Timeslot,
		events:    deps.Events,
		transport: deps.Transport,
		id:        deps.Identity,
		rng:       rng,
		log:       log,
		opts:      opts,
	}, nil
}

// Init allocates metadata for handles 1..handleCount. It can be called once.
func (e *Engine) Init(handleCount int, minIntervalUs uint32) error {
	if e.initialized {
		return ErrAlreadyInitialized
	}
	if handleCount <= 0 || handleCount > MaxValueCount {
		return fmt.Errorf("%w: handle count %d not in [1, %d]", ErrBadArgument, handleCount, MaxValueCount)
	}

	params, err := trickle.NewParams(uint64(minIntervalUs), e.opts.TrickleDoublings, e.opts.TrickleK)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	e.params = params

	e.md = make([]metadata, handleCount)
	for i := range e.md {
		e.md[i].trickle = trickle.New(&e.params, e.rng)
	}
	e.cursor = 0
	e.initialized = true
	return nil
}

// HandleCount returns the number of handles, 0 before Init.
func (e *Engine) HandleCount() int { return len(e.md) }

// lookup resolves a 1-indexed handle.
func (e *Engine) lookup(handle uint8) (*metadata, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if handle == 0 || int(handle) > len(e.md) {
		return nil, fmt.Errorf("%w: %d", ErrBadHandle, handle)
	}
	return &e.md[handle-1], nil
}

// absNow is the absolute time of the current tick.
func (e *Engine) absNow() uint64 {
	return e.slot.GlobalTime() + uint64(e.timer.Now())
}
