// internal/config/normalize.go
package config

import "github.com/tamzrod/mesh-versioner/internal/version"

const (
	DefaultMinIntervalUs   uint32 = 100_000
	DefaultLengthUs        uint32 = 10_000
	DefaultTickUs          uint32 = 1_000
	DefaultEventQueueDepth        = 64
	DefaultSnapshotEveryMs        = 1_000
	DefaultQueueDepth             = 16
	DefaultTimeoutMs              = 2_000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ---- mesh ----
	m := &cfg.Mesh
	if m.MinIntervalUs == 0 {
		m.MinIntervalUs = DefaultMinIntervalUs
	}
	if m.MaxIntervalDoublings == 0 {
		m.MaxIntervalDoublings = version.DefaultTrickleDoublings
	}
	if m.Redundancy == 0 {
		m.Redundancy = version.DefaultTrickleK
	}
	if m.TimerSlot == nil {
		slot := version.DefaultTimerSlot
		m.TimerSlot = &slot
	}

	// ---- timeslot ----
	ts := &cfg.Timeslot
	if ts.LengthUs == 0 {
		ts.LengthUs = DefaultLengthUs
	}
	if ts.PeriodUs == 0 {
		ts.PeriodUs = ts.LengthUs * 2
	}
	if ts.StartupDelayUs == 0 {
		ts.StartupDelayUs = version.DefaultStartupDelay
	}
	if ts.StartupDelayUs >= ts.LengthUs {
		ts.StartupDelayUs = ts.LengthUs / 2
	}

	// ---- core ----
	if cfg.Core.TickUs == 0 {
		cfg.Core.TickUs = DefaultTickUs
	}
	if cfg.Core.EventQueueDepth == 0 {
		cfg.Core.EventQueueDepth = DefaultEventQueueDepth
	}
	if cfg.Core.SnapshotEveryMs == 0 {
		cfg.Core.SnapshotEveryMs = DefaultSnapshotEveryMs
	}

	// ---- transport ----
	if cfg.Transport.QueueDepth == 0 {
		cfg.Transport.QueueDepth = DefaultQueueDepth
	}
	if cfg.Transport.TimeoutMs == 0 {
		cfg.Transport.TimeoutMs = DefaultTimeoutMs
	}

	// ---- sources ----
	for i := range cfg.Values {
		sc := cfg.Values[i].Source
		if sc == nil {
			continue
		}
		if sc.IntervalMs == 0 {
			sc.IntervalMs = DefaultSnapshotEveryMs
		}
		if sc.TimeoutMs == 0 {
			sc.TimeoutMs = DefaultTimeoutMs
		}
	}

	// ---- export ----
	if cfg.Export != nil && cfg.Export.TimeoutMs == 0 {
		cfg.Export.TimeoutMs = DefaultTimeoutMs
	}
}
