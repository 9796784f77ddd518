// internal/transport/queue_test.go
package transport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tamzrod/mesh-versioner/internal/identity"
)

type fakeValues map[uint8][]byte

func (f fakeValues) Value(h uint8) []byte { return f[h] }

type fakeSender struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
	got    chan struct{}
}

func (f *fakeSender) Send(_ context.Context, fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	f.got <- struct{}{}
	if f.fail {
		return errors.New("boom")
	}
	return nil
}

func TestQueue_BackpressureAndAvailable(t *testing.T) {
	q, err := NewQueue(1, fakeValues{1: []byte("a")}, nil)
	if err != nil {
		t.Fatalf("NewQueue err=%v", err)
	}

	available := make(chan struct{}, 1)
	q.OnAvailable(func() { available <- struct{}{} })

	origin := identity.Address{Bytes: [6]byte{1}}
	if err := q.Transmit(1, 5, origin); err != nil {
		t.Fatalf("first transmit: %v", err)
	}
	if err := q.Transmit(1, 6, origin); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	s := &fakeSender{got: make(chan struct{}, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, s) }()

	select {
	case <-available:
	case <-time.After(2 * time.Second):
		t.Fatalf("OnAvailable not called")
	}
	<-s.got

	s.mu.Lock()
	fr := s.frames[0]
	s.mu.Unlock()
	if fr.Handle != 1 || fr.Version != 5 || string(fr.Payload) != "a" || fr.Origin != origin {
		t.Fatalf("unexpected frame: %+v", fr)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
	if q.Sent() != 1 {
		t.Fatalf("expected 1 sent, got %d", q.Sent())
	}
}

func TestQueue_SendFailureCounted(t *testing.T) {
	q, _ := NewQueue(2, fakeValues{}, nil)
	_ = q.Transmit(3, 1, identity.Address{})

	s := &fakeSender{fail: true, got: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = q.Run(ctx, s) }()

	<-s.got
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for q.Dropped() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 dropped, got %d", q.Dropped())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestQueue_LogsCountersOnStop(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	q, _ := NewQueue(2, fakeValues{1: []byte("a")}, log)
	_ = q.Transmit(1, 1, identity.Address{})

	s := &fakeSender{got: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, s) }()

	<-s.got
	deadline := time.Now().Add(2 * time.Second)
	for q.Sent() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 sent, got %d", q.Sent())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	out := buf.String()
	if !strings.Contains(out, "transport stopped") || !strings.Contains(out, "sent=1") || !strings.Contains(out, "dropped=0") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestNewQueue_Rejects(t *testing.T) {
	if _, err := NewQueue(0, fakeValues{}, nil); err == nil {
		t.Fatalf("expected error for zero depth")
	}
	if _, err := NewQueue(1, nil, nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
}
