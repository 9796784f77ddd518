// internal/config/config.go
package config

type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Timeslot  TimeslotConfig  `yaml:"timeslot"`
	Core      CoreConfig      `yaml:"core"`
	Transport TransportConfig `yaml:"transport"`
	Export    *ExportConfig   `yaml:"export"` // optional, opt-in
	Values    []ValueConfig   `yaml:"values"`
}

// ---- NODE ----

type NodeConfig struct {
	Address     string `yaml:"address"`      // "c0:11:22:33:44:55"
	AddressType uint8  `yaml:"address_type"` // 0 public, 1 random static
}

// ---- MESH ----

type MeshConfig struct {
	HandleCount          int    `yaml:"handle_count"`
	MinIntervalUs        uint32 `yaml:"min_interval_us"`
	MaxIntervalDoublings uint32 `yaml:"max_interval_doublings"`
	Redundancy           uint32 `yaml:"redundancy"`
	TimerSlot            *uint8 `yaml:"timer_slot"`
}

// ---- TIMESLOT ----

type TimeslotConfig struct {
	LengthUs       uint32 `yaml:"length_us"`
	PeriodUs       uint32 `yaml:"period_us"`
	StartupDelayUs uint32 `yaml:"startup_delay_us"`
}

// ---- CORE ----

type CoreConfig struct {
	TickUs          uint32 `yaml:"tick_us"`
	EventQueueDepth int    `yaml:"event_queue_depth"`
	SnapshotEveryMs int    `yaml:"snapshot_every_ms"`
}

// ---- TRANSPORT ----

type TransportConfig struct {
	Listen     string   `yaml:"listen"` // empty: receive nothing
	Peers      []string `yaml:"peers"`
	QueueDepth int      `yaml:"queue_depth"`
	TimeoutMs  int      `yaml:"timeout_ms"`
}

// ---- EXPORT ----

type ExportConfig struct {
	Endpoint    string `yaml:"endpoint"`
	UnitID      uint32 `yaml:"unit_id"`
	BaseAddress uint16 `yaml:"base_address"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

// ---- VALUES ----

// ValueConfig is a value this node originates. Its payload is either the
// static data or, when source is set, the raw content of a Modbus read.
type ValueConfig struct {
	Handle        uint8         `yaml:"handle"`
	Data          string        `yaml:"data"`
	UpdateEveryMs int           `yaml:"update_every_ms"` // 0: publish once
	CharHandle    uint8         `yaml:"char_handle"`
	Source        *SourceConfig `yaml:"source"` // optional
}

// ---- SOURCE ----

// SourceConfig polls a Modbus device. A changed read is a local update.
type SourceConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	FC         uint8  `yaml:"fc"`
	Address    uint16 `yaml:"address"`
	Quantity   uint16 `yaml:"quantity"`
	IntervalMs int    `yaml:"interval_ms"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}
