// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/tamzrod/mesh-versioner/internal/identity"
	"github.com/tamzrod/mesh-versioner/internal/status"
	"github.com/tamzrod/mesh-versioner/internal/timer"
	"github.com/tamzrod/mesh-versioner/internal/transport/tcp"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// NODE
	// ------------------------------------------------------------

	if cfg.Node.Address == "" {
		return errors.New("node.address is required")
	}
	if _, err := identity.ParseAddress(cfg.Node.Address, cfg.Node.AddressType); err != nil {
		return fmt.Errorf("node.address: %w", err)
	}
	if cfg.Node.AddressType > identity.AddressRandomStatic {
		return fmt.Errorf("node.address_type %d unknown", cfg.Node.AddressType)
	}

	// ------------------------------------------------------------
	// MESH
	// ------------------------------------------------------------

	m := cfg.Mesh
	if m.HandleCount < 1 || m.HandleCount > 255 {
		return fmt.Errorf("mesh.handle_count %d not in [1, 255]", m.HandleCount)
	}
	if m.MinIntervalUs == 1 {
		return errors.New("mesh.min_interval_us must be >= 2")
	}
	if m.TimerSlot != nil && *m.TimerSlot >= timer.SlotCount {
		return fmt.Errorf("mesh.timer_slot %d not in [0, %d]", *m.TimerSlot, timer.SlotCount-1)
	}

	// ------------------------------------------------------------
	// TIMESLOT
	// ------------------------------------------------------------

	ts := cfg.Timeslot
	if ts.LengthUs > 0 && ts.PeriodUs > 0 && ts.PeriodUs < ts.LengthUs {
		return fmt.Errorf("timeslot.period_us %d shorter than length_us %d", ts.PeriodUs, ts.LengthUs)
	}
	if ts.LengthUs > 0 && ts.StartupDelayUs >= ts.LengthUs {
		return fmt.Errorf("timeslot.startup_delay_us %d outside the window", ts.StartupDelayUs)
	}

	// ------------------------------------------------------------
	// CORE
	// ------------------------------------------------------------

	if cfg.Core.EventQueueDepth < 0 {
		return errors.New("core.event_queue_depth must be >= 0")
	}
	if cfg.Core.SnapshotEveryMs < 0 {
		return errors.New("core.snapshot_every_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	if cfg.Transport.QueueDepth < 0 {
		return errors.New("transport.queue_depth must be >= 0")
	}
	if cfg.Transport.TimeoutMs < 0 {
		return errors.New("transport.timeout_ms must be >= 0")
	}
	peers := make(map[string]bool)
	for i, p := range cfg.Transport.Peers {
		if p == "" {
			return fmt.Errorf("transport.peers[%d] is empty", i)
		}
		if peers[p] {
			return fmt.Errorf("transport.peers: duplicate peer %s", p)
		}
		peers[p] = true
	}

	// ------------------------------------------------------------
	// EXPORT (OPT-IN)
	// ------------------------------------------------------------

	if e := cfg.Export; e != nil {
		if e.Endpoint == "" {
			return errors.New("export.endpoint is required when export is set")
		}
		if e.UnitID > 255 {
			return fmt.Errorf("export.unit_id %d out of range", e.UnitID)
		}
		end := int(e.BaseAddress) + m.HandleCount*status.RegsPerValue
		if end > 65536 {
			return fmt.Errorf(
				"export: %d value blocks from base_address %d exceed the register space",
				m.HandleCount,
				e.BaseAddress,
			)
		}
	}

	// ------------------------------------------------------------
	// VALUES
	// ------------------------------------------------------------

	seen := make(map[uint8]bool)
	for _, v := range cfg.Values {
		if v.Handle == 0 || int(v.Handle) > m.HandleCount {
			return fmt.Errorf("values: handle %d not in [1, %d]", v.Handle, m.HandleCount)
		}
		if seen[v.Handle] {
			return fmt.Errorf("values: handle %d declared twice", v.Handle)
		}
		seen[v.Handle] = true

		if len(v.Data) > tcp.MaxPayload {
			return fmt.Errorf("values: handle %d data exceeds %d bytes", v.Handle, tcp.MaxPayload)
		}
		if v.UpdateEveryMs < 0 {
			return fmt.Errorf("values: handle %d update_every_ms must be >= 0", v.Handle)
		}

		if v.Source != nil {
			if err := validateSource(v); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateSource(v ValueConfig) error {
	sc := v.Source

	if v.UpdateEveryMs != 0 {
		return fmt.Errorf("values: handle %d: update_every_ms and source are exclusive", v.Handle)
	}
	if sc.Endpoint == "" {
		return fmt.Errorf("values: handle %d: source.endpoint is required", v.Handle)
	}
	if sc.Quantity == 0 {
		return fmt.Errorf("values: handle %d: source.quantity must be > 0", v.Handle)
	}
	if sc.IntervalMs < 0 || sc.TimeoutMs < 0 {
		return fmt.Errorf("values: handle %d: source timings must be >= 0", v.Handle)
	}

	// payload geometry must fit one frame
	var size int
	switch sc.FC {
	case 1, 2:
		size = (int(sc.Quantity) + 7) / 8
	case 3, 4:
		size = int(sc.Quantity) * 2
	default:
		return fmt.Errorf("values: handle %d: source.fc %d unsupported", v.Handle, sc.FC)
	}
	if size > tcp.MaxPayload {
		return fmt.Errorf("values: handle %d: source read of %d bytes exceeds %d", v.Handle, size, tcp.MaxPayload)
	}
	return nil
}
