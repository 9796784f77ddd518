// internal/node/builder.go
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	cfg "github.com/tamzrod/mesh-versioner/internal/config"
	"github.com/tamzrod/mesh-versioner/internal/event"
	"github.com/tamzrod/mesh-versioner/internal/export"
	emodbus "github.com/tamzrod/mesh-versioner/internal/export/modbus"
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
)

// Build wires one node from a validated, normalized config.
// The returned func releases the listener and export connection.
func Build(c *cfg.Config, log *slog.Logger) (*Node, func(), error) {
	if c == nil {
		return nil, nil, errors.New("node: config required")
	}
	if log == nil {
		log = slog.Default()
	}

	self, err := identity.ParseAddress(c.Node.Address, c.Node.AddressType)
	if err != nil {
		return nil, nil, err
	}

	n := &Node{
		cfg:    c,
		log:    log.With("node", self.String()),
		self:   self,
		values: store.New(),
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// ---- core: timer peripheral, timeslots, deferred work ----
	n.hw = sim.NewTimer()
	n.slots, err = timeslot.NewSimulator(n.hw, c.Timeslot.LengthUs, c.Timeslot.PeriodUs)
	if err != nil {
		return nil, nil, err
	}
	n.events, err = event.New(c.Core.EventQueueDepth)
	if err != nil {
		return nil, nil, err
	}
	n.sched = timer.New(n.hw, n.hw, n.events, n.log)
	n.hw.SetHandler(n.sched.HandleInterrupt)
	n.hw.SetThread(func() { n.events.Drain() })

	// ---- transport ----
	n.queue, err = transport.NewQueue(c.Transport.QueueDepth, n.values, n.log)
	if err != nil {
		return nil, nil, err
	}
	timeout := time.Duration(c.Transport.TimeoutMs) * time.Millisecond
	if len(c.Transport.Peers) > 0 {
		n.sender, err = tcp.NewSender(tcp.Config{Peers: c.Transport.Peers, Timeout: timeout})
		if err != nil {
			return nil, nil, err
		}
	} else {
		n.sender = discard{}
	}

	// ---- version engine ----
	n.engine, err = version.New(version.Deps{
		Timer:     n.sched,
		Timeslot:  n.slots,
		Events:    n.events,
		Transport: n.queue,
		Identity:  identity.Static(self),
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:       n.log,
	}, version.Options{
		TimerSlot:        *c.Mesh.TimerSlot,
		TrickleDoublings: c.Mesh.MaxIntervalDoublings,
		TrickleK:         c.Mesh.Redundancy,
		StartupDelay:     c.Timeslot.StartupDelayUs,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := n.engine.Init(c.Mesh.HandleCount, c.Mesh.MinIntervalUs); err != nil {
		return nil, nil, fmt.Errorf("node: engine init: %w", err)
	}

	n.slots.OnBegin(func() {
		if err := n.engine.OnTimeslotBegin(); err != nil {
			n.log.Warn("timeslot sweep dropped", "err", err)
		}
	})
	n.queue.OnAvailable(func() {
		if err := n.engine.Resume(); err != nil {
			n.log.Warn("resume dropped", "err", err)
		}
	})

	// ---- receive ----
	if c.Transport.Listen != "" {
		n.listener, err = tcp.Listen(c.Transport.Listen, timeout, n.deliver, n.log)
		if err != nil {
			return nil, nil, fmt.Errorf("node: listen %s: %w", c.Transport.Listen, err)
		}
		closers = append(closers, func() { _ = n.listener.Close() })
	}

	// ---- export (optional) ----
	if e := c.Export; e != nil {
		cli, err := emodbus.NewEndpointClient(emodbus.Config{
			Endpoint: e.Endpoint,
			Timeout:  time.Duration(e.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("node: export endpoint %s: %w", e.Endpoint, err)
		}
		closers = append(closers, func() { _ = cli.Close() })

		n.exporter, err = export.NewWriter(export.Plan{
			Endpoint:    e.Endpoint,
			UnitID:      e.UnitID,
			BaseAddress: e.BaseAddress,
		}, cli)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		n.snapshots = make(chan status.Snapshot, 1)
	}

	// ---- locally originated values ----
	for _, v := range c.Values {
		if err := n.engine.SetCharHandle(v.Handle, v.CharHandle); err != nil {
			closeAll()
			return nil, nil, err
		}
		if v.Source != nil {
			p, closeSource, err := source.Build(v.Handle, *v.Source)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("node: source for handle %d: %w", v.Handle, err)
			}
			closers = append(closers, func() { _ = closeSource() })
			n.sources = append(n.sources, p)
			continue
		}
		n.local = append(n.local, &localValue{
			handle: v.Handle,
			data:   v.Data,
			every:  uint64(v.UpdateEveryMs) * 1000,
		})
	}

	if len(n.sources) > 0 {
		n.readings = make(chan source.Reading, len(n.sources))
	}

	return n, closeAll, nil
}

// discard is the sender of a node without peers.
type discard struct{}

func (discard) Send(context.Context, transport.Frame) error { return nil }
