// internal/source/poller.go
package source

import (
	"errors"
	"time"
)

// Client abstracts Modbus operations needed by the poller.
// The poller depends on geometry only.
type Client interface {
	ReadCoils(addr, qty uint16) ([]bool, error)              // FC 1
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error)     // FC 2
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)   // FC 4
}

// Factory makes a fresh client. One attempt per call.
type Factory func() (Client, error)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Handle   uint8
	Interval time.Duration
	Read     ReadBlock
}

// Poller is a dumb, clock-driven reader feeding one value.
type Poller struct {
	cfg     Config
	client  Client
	factory Factory
}

// New creates a poller with immutable config. factory may be nil; then a
// failed client is kept.
func New(cfg Config, client Client, factory Factory) (*Poller, error) {
	if cfg.Handle == 0 {
		return nil, errors.New("source: handle required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("source: interval must be > 0")
	}
	if cfg.Read.Quantity == 0 {
		return nil, errors.New("source: read quantity must be > 0")
	}
	if client == nil && factory == nil {
		return nil, errors.New("source: client or factory required")
	}
	return &Poller{cfg: cfg, client: client, factory: factory}, nil
}

// PollOnce performs exactly one poll cycle.
// On failure the client is discarded and rebuilt on a future cycle.
func (p *Poller) PollOnce() Reading {
	res := Reading{
		Handle: p.cfg.Handle,
		At:     time.Now(),
	}

	if p.client == nil {
		cli, err := p.factory()
		if err != nil {
			res.Err = err
			return res
		}
		p.client = cli
	}

	payload, err := p.read()
	if err != nil {
		if p.factory != nil {
			p.client = nil
		}
		res.Err = err
		return res
	}

	res.Payload = payload
	return res
}

func (p *Poller) read() ([]byte, error) {
	rb := p.cfg.Read

	switch rb.FC {
	case 1:
		bits, err := p.client.ReadCoils(rb.Address, rb.Quantity)
		if err != nil {
			return nil, err
		}
		return packBits(bits), nil

	case 2:
		bits, err := p.client.ReadDiscreteInputs(rb.Address, rb.Quantity)
		if err != nil {
			return nil, err
		}
		return packBits(bits), nil

	case 3:
		regs, err := p.client.ReadHoldingRegisters(rb.Address, rb.Quantity)
		if err != nil {
			return nil, err
		}
		return packRegisters(regs), nil

	case 4:
		regs, err := p.client.ReadInputRegisters(rb.Address, rb.Quantity)
		if err != nil {
			return nil, err
		}
		return packRegisters(regs), nil

	default:
		return nil, errors.New("source: unsupported function code")
	}
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
