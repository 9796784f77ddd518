// internal/transport/tcp/tcp_test.go
package tcp

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/mesh-versioner/internal/identity"
	"github.com/tamzrod/mesh-versioner/internal/transport"
)

func TestEncodeFrame_Layout(t *testing.T) {
	f := transport.Frame{
		Handle:  7,
		Version: 0x1234,
		Origin:  identity.Address{Type: 1, Bytes: [6]byte{0xc0, 1, 2, 3, 4, 5}},
		Payload: []byte("hi"),
	}

	b, err := EncodeFrame(f)
	require.NoError(t, err)

	want := []byte{'M', 'V', 0x01, 7, 0x12, 0x34, 1, 0xc0, 1, 2, 3, 4, 5, 2, 'h', 'i'}
	assert.Equal(t, want, b)

	got, err := ReadFrame(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestEncodeFrame_PayloadTooLarge(t *testing.T) {
	_, err := EncodeFrame(transport.Frame{Payload: make([]byte, MaxPayload+1)})
	assert.Error(t, err)
}

func TestReadFrame_BadMagic(t *testing.T) {
	b := make([]byte, HeaderSize)
	_, err := ReadFrame(bytes.NewReader(b))
	assert.Error(t, err)
}

func TestSenderListener(t *testing.T) {
	got := make(chan transport.Frame, 1)
	l, err := Listen("127.0.0.1:0", time.Second, func(f transport.Frame) error {
		if f.Handle == 9 {
			return errors.New("unknown handle")
		}
		got <- f
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Serve(ctx) }()

	s, err := NewSender(Config{Peers: []string{l.Addr().String()}, Timeout: time.Second})
	require.NoError(t, err)

	f := transport.Frame{Handle: 2, Version: 300, Payload: []byte{1, 2, 3}}
	require.NoError(t, s.Send(ctx, f))

	select {
	case rx := <-got:
		assert.Equal(t, f.Handle, rx.Handle)
		assert.Equal(t, f.Version, rx.Version)
		assert.Equal(t, f.Payload, rx.Payload)
	case <-time.After(2 * time.Second):
		t.Fatalf("frame not received")
	}

	err = s.Send(ctx, transport.Frame{Handle: 9})
	assert.ErrorContains(t, err, "rejected")
}

func TestServe_ReturnsAcceptError(t *testing.T) {
	l, err := Listen("127.0.0.1:0", time.Second, func(transport.Frame) error { return nil }, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	done := make(chan error, 1)
	go func() { done <- l.Serve(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, net.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return")
	}
}

func TestNewSender_RequiresPeer(t *testing.T) {
	_, err := NewSender(Config{})
	assert.Error(t, err)
}
