// internal/transport/tcp/listener.go
package tcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/tamzrod/mesh-versioner/internal/transport"
)

// Handler accepts a received frame. A non-nil error is reported to the
// sender as REJECTED.
type Handler func(f transport.Frame) error

// Listener receives frames from peers.
type Listener struct {
	ln      net.Listener
	handle  Handler
	timeout time.Duration
	log     *slog.Logger
}

// Listen binds addr. Use "127.0.0.1:0" in tests and read Addr back.
func Listen(addr string, timeout time.Duration, h Handler, log *slog.Logger) (*Listener, error) {
	if h == nil {
		return nil, errors.New("tcp listener: handler required")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, handle: h, timeout: timeout, log: log}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close releases the socket. Serve also closes it when its context ends.
func (l *Listener) Close() error { return l.ln.Close() }

// Serve accepts connections until ctx is done or Accept fails. The socket is
// closed on return.
func (l *Listener) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.serveConn(conn)
		}()
	}
}

func (l *Listener) serveConn(conn net.Conn) {
	defer conn.Close()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(l.timeout))
		f, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.log.Debug("tcp frame read failed", "remote", conn.RemoteAddr().String(), "err", err)
			}
			return
		}

		resp := respOK
		if err := l.handle(f); err != nil {
			l.log.Debug("tcp frame rejected", "handle", f.Handle, "err", err)
			resp = respRejected
		}

		_ = conn.SetWriteDeadline(time.Now().Add(l.timeout))
		if err := writeAll(conn, []byte{resp}); err != nil {
			return
		}
	}
}
