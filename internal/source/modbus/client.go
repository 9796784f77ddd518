// internal/source/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// Client implements source.Client using Modbus TCP.
// This adapter is geometry-only: it issues reads and unpacks raw responses.
type Client struct {
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// New creates a connected Modbus TCP client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	return c.handler.Close()
}

// ---- source.Client interface ----

func (c *Client) ReadCoils(addr, qty uint16) ([]bool, error) {
	b, err := c.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackBits(b, int(qty))
}

func (c *Client) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	b, err := c.client.ReadDiscreteInputs(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackBits(b, int(qty))
}

func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	b, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(b, int(qty))
}

func (c *Client) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	b, err := c.client.ReadInputRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(b, int(qty))
}

func unpackBits(b []byte, qty int) ([]bool, error) {
	if len(b)*8 < qty {
		return nil, fmt.Errorf("modbus: read-bits payload %d bytes, want %d bits", len(b), qty)
	}
	out := make([]bool, qty)
	for i := 0; i < qty; i++ {
		out[i] = b[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}

func unpackRegisters(b []byte, qty int) ([]uint16, error) {
	if len(b) < qty*2 {
		return nil, fmt.Errorf("modbus: read-registers payload %d bytes, want %d", len(b), qty*2)
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return out, nil
}
