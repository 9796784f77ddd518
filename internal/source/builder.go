// internal/source/builder.go
package source

import (
	"time"

	cfg "github.com/tamzrod/mesh-versioner/internal/config"
	smodbus "github.com/tamzrod/mesh-versioner/internal/source/modbus"
)

// Build constructs a Poller for one sourced value and wires the Modbus
// client lifecycle. The connection is reused while healthy; after a failure
// the poller rebuilds it on a future tick.
func Build(handle uint8, sc cfg.SourceConfig) (*Poller, func() error, error) {
	var current *smodbus.Client

	factory := func() (Client, error) {
		if current != nil {
			_ = current.Close()
			current = nil
		}
		c, err := smodbus.New(smodbus.Config{
			Endpoint: sc.Endpoint,
			UnitID:   sc.UnitID,
			Timeout:  time.Duration(sc.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		current = c
		return c, nil
	}

	// initial client (fail fast at startup)
	client, err := factory()
	if err != nil {
		return nil, nil, err
	}

	p, err := New(
		Config{
			Handle:   handle,
			Interval: time.Duration(sc.IntervalMs) * time.Millisecond,
			Read: ReadBlock{
				FC:       sc.FC,
				Address:  sc.Address,
				Quantity: sc.Quantity,
			},
		},
		client,
		factory,
	)
	if err != nil {
		_ = current.Close()
		return nil, nil, err
	}

	closeFn := func() error {
		if current == nil {
			return nil
		}
		return current.Close()
	}
	return p, closeFn, nil
}
