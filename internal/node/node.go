// internal/node/node.go
package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	cfg "github.com/tamzrod/mesh-versioner/internal/config"
	"github.com/tamzrod/mesh-versioner/internal/event"
	"github.com/tamzrod/mesh-versioner/internal/export"
	"github.com/tamzrod/mesh-versioner/internal/hw/sim"
	"github.com/tamzrod/mesh-versioner/internal/identity"
	"github.com/tamzrod/mesh-versioner/internal/source"
	"github.com/tamzrod/mesh-versioner/internal/status"
	"github.com/tamzrod/mesh-versioner/internal/store"
	"github.com/tamzrod/mesh-versioner/internal/timer"
	"github.com/tamzrod/mesh-versioner/internal/timeslot"
	"github.com/tamzrod/mesh-versioner/internal/transport"
	"github.com/tamzrod/mesh-versioner/internal/transport/tcp"
	"github.com/tamzrod/mesh-versioner/internal/version"
	"golang.org/x/sync/errgroup"
)

// Node is one simulated mesh device.
//
// A single core goroutine owns the timer, the scheduler, the engine and the
// timeslot simulator. Other goroutines reach the core only through the
// event queue.
type Node struct {
	cfg  *cfg.Config
	log  *slog.Logger
	self identity.Address

	hw     *sim.Timer
	slots  *timeslot.Simulator
	events *event.Queue
	sched  *timer.Scheduler
	engine *version.Engine
	values *store.Store

	queue    *transport.Queue
	sender   transport.Sender
	listener *tcp.Listener

	exporter  export.SnapshotWriter
	snapshots chan status.Snapshot

	sources  []*source.Poller
	readings chan source.Reading

	local        []*localValue
	now          uint64 // simulated µs
	nextSnapshot uint64
}

// localValue is a value this node originates.
type localValue struct {
	handle  uint8
	data    string
	every   uint64 // µs, 0: once
	next    uint64
	seq     int
	started bool
}

func (v *localValue) due(now uint64) bool {
	return !v.started || (v.every > 0 && now >= v.next)
}

// payload is the configured data, suffixed with the update sequence after
// the first update so every version carries distinct content.
func (v *localValue) payload() []byte {
	b := []byte(v.data)
	if v.seq > 0 {
		b = append(b, fmt.Sprintf("#%d", v.seq)...)
	}
	if len(b) > tcp.MaxPayload {
		b = b[:tcp.MaxPayload]
	}
	return b
}

// Self returns this node's address.
func (n *Node) Self() identity.Address { return n.self }

// ListenAddr returns the bound receive address, nil without a listener.
func (n *Node) ListenAddr() net.Addr {
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// Value returns the current payload of handle. Safe from any goroutine.
func (n *Node) Value(handle uint8) []byte { return n.values.Value(handle) }

// Run drives the node until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return n.runCore(ctx) })
	g.Go(func() error { return n.queue.Run(ctx, n.sender) })

	if n.listener != nil {
		g.Go(func() error { return n.listener.Serve(ctx) })
	}
	if n.exporter != nil {
		g.Go(func() error { return export.Run(ctx, n.snapshots, n.exporter, n.log) })
	}
	for _, p := range n.sources {
		p := p
		g.Go(func() error { return p.Run(ctx, n.readings) })
	}

	n.log.Info("node started",
		"handles", n.cfg.Mesh.HandleCount,
		"local_values", len(n.local),
		"sources", len(n.sources),
		"peers", len(n.cfg.Transport.Peers),
	)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runCore is the core goroutine. Every tick advances simulated time by
// core.tick_us.
func (n *Node) runCore(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(n.cfg.Core.TickUs) * time.Microsecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n.step()
		case r := <-n.readings:
			n.applyReading(r)
		}
	}
}

// step runs one core tick. Timeslots and timer compares advance to the new
// time, with deferred work drained after every match at its own tick. Due
// local updates follow, then the events they deferred.
func (n *Node) step() {
	n.now += uint64(n.cfg.Core.TickUs)

	n.slots.Advance(n.now)
	n.updateLocal()
	n.events.Drain()
	n.publishSnapshot()
}

func (n *Node) updateLocal() {
	for _, v := range n.local {
		if !v.due(n.now) {
			continue
		}

		n.publishLocal(v.handle, v.payload())

		v.started = true
		v.seq++
		v.next = n.now + v.every
	}
}

// applyReading turns a changed source read into a local update.
// Core goroutine only.
func (n *Node) applyReading(r source.Reading) {
	if r.Err != nil {
		n.log.Warn("source read failed", "handle", r.Handle, "err", r.Err)
		return
	}
	if cur := n.values.Value(r.Handle); cur != nil && bytes.Equal(cur, r.Payload) {
		return
	}
	n.publishLocal(r.Handle, r.Payload)
}

func (n *Node) publishLocal(handle uint8, payload []byte) {
	n.values.Set(handle, payload)

	st, err := n.engine.LocalUpdate(handle)
	if err != nil {
		n.log.Warn("local update failed", "handle", handle, "err", err)
		return
	}
	n.log.Debug("local update", "handle", handle, "status", st.String())
}

// deliver is the listener's handler. It runs on a connection goroutine and
// defers the reception to the core.
func (n *Node) deliver(f transport.Frame) error {
	if f.Handle == 0 || int(f.Handle) > n.cfg.Mesh.HandleCount {
		return fmt.Errorf("node: unknown handle %d", f.Handle)
	}
	if err := n.events.Push(event.Event{
		Callback: func(uint32) { n.receive(f) },
	}); err != nil {
		return fmt.Errorf("node: reception dropped: %w", err)
	}
	return nil
}

// receive classifies a frame and applies it. Core goroutine only.
func (n *Node) receive(f transport.Frame) {
	sum := store.Checksum(f.Payload)
	st := n.engine.Compare(f.Handle, f.Version, sum, f.Origin == n.self)
	if st == version.StatusUnknown {
		n.log.Debug("reception ignored", "handle", f.Handle)
		return
	}

	rx := version.Reception{
		Handle:    f.Handle,
		Version:   f.Version,
		Checksum:  sum,
		Origin:    f.Origin,
		Timestamp: n.sched.Now(),
	}
	if err := n.engine.RegisterReception(st, rx); err != nil {
		n.log.Warn("reception failed", "handle", f.Handle, "err", err)
		return
	}

	if st == version.StatusNew || st == version.StatusUpdated {
		n.values.Set(f.Handle, f.Payload)
		n.log.Debug("value adopted",
			"handle", f.Handle,
			"version", f.Version,
			"origin", f.Origin.String(),
			"status", st.String(),
		)
	}
}

func (n *Node) publishSnapshot() {
	if n.snapshots == nil || n.now < n.nextSnapshot {
		return
	}
	n.nextSnapshot = n.now + uint64(n.cfg.Core.SnapshotEveryMs)*1000

	select {
	case n.snapshots <- snapshotOf(n.engine.Snapshot()):
	default:
		// exporter still busy with the previous one
	}
}

func snapshotOf(infos []version.Info) status.Snapshot {
	s := make(status.Snapshot, 0, len(infos))
	for _, in := range infos {
		s = append(s, status.ValueSnapshot{
			Handle:     in.Handle,
			Flags:      uint16(in.Flags),
			Version:    in.Version,
			Checksum:   in.Checksum,
			OriginType: in.Origin.Type,
			Origin:     in.Origin.Bytes,
		})
	}
	return s
}
