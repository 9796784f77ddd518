// internal/transport/tcp/sender.go
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/tamzrod/mesh-versioner/internal/transport"
)

// Sender announces frames to a fixed set of peers, one connection per frame
// per peer.
type Sender struct {
	peers   []string
	timeout time.Duration
	dialer  net.Dialer
}

type Config struct {
	Peers   []string
	Timeout time.Duration
}

func NewSender(cfg Config) (*Sender, error) {
	if len(cfg.Peers) == 0 {
		return nil, errors.New("tcp sender: at least one peer required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Sender{
		peers:   cfg.Peers,
		timeout: cfg.Timeout,
		dialer:  net.Dialer{Timeout: cfg.Timeout},
	}, nil
}

// Send delivers f to every peer. A failing peer does not stop the others.
func (s *Sender) Send(ctx context.Context, f transport.Frame) error {
	pkt, err := EncodeFrame(f)
	if err != nil {
		return err
	}

	var errs []string
	for _, peer := range s.peers {
		if err := s.sendOne(ctx, peer, pkt); err != nil {
			errs = append(errs, fmt.Sprintf("peer=%s err=%v", peer, err))
		}
	}
	if len(errs) > 0 {
		return errors.New("tcp sender: " + strings.Join(errs, " | "))
	}
	return nil
}

func (s *Sender) sendOne(ctx context.Context, peer string, pkt []byte) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", peer)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(s.timeout))
	if err := writeAll(conn, pkt); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.timeout))
	var resp [1]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	switch resp[0] {
	case respOK:
		return nil
	case respRejected:
		return errors.New("rejected")
	default:
		return fmt.Errorf("unknown status 0x%02x", resp[0])
	}
}
