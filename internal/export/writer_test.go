// internal/export/writer_test.go
package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/mesh-versioner/internal/status"
)

// ---- fake endpoint client ----

type writeCall struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeEndpointClient struct {
	writes []writeCall
	fail   bool
}

func (f *fakeEndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if f.fail {
		return errors.New("boom")
	}
	f.writes = append(f.writes, writeCall{
		unitID: unitID,
		addr:   addr,
		regs:   append([]uint16(nil), regs...),
	})
	return nil
}

func (f *fakeEndpointClient) last() writeCall {
	return f.writes[len(f.writes)-1]
}

func snapshot(n int, version uint16) status.Snapshot {
	s := make(status.Snapshot, 0, n)
	for i := 1; i <= n; i++ {
		s = append(s, status.ValueSnapshot{
			Handle:     uint8(i),
			Flags:      status.FlagUsed | status.FlagInitialized,
			Version:    version,
			Checksum:   0x01020304,
			OriginType: 1,
			Origin:     [6]byte{0xC0, 0, 0, 0, 0, byte(i)},
		})
	}
	return s
}

func newWriter(t *testing.T, cli *fakeEndpointClient) *Writer {
	t.Helper()
	w, err := NewWriter(Plan{Endpoint: "ep", UnitID: 7, BaseAddress: 100}, cli)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	return w
}

// ---- tests ----

func TestWriter_FirstWriteIsFullBlock(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newWriter(t, cli)

	if err := w.WriteSnapshot(snapshot(3, 1)); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}

	if len(cli.writes) != 1 {
		t.Fatalf("expected one batched write, got %d", len(cli.writes))
	}
	wc := cli.last()
	if wc.unitID != 7 || wc.addr != 100 {
		t.Fatalf("unexpected target: unit=%d addr=%d", wc.unitID, wc.addr)
	}
	if len(wc.regs) != 3*status.RegsPerValue {
		t.Fatalf("expected %d regs, got %d", 3*status.RegsPerValue, len(wc.regs))
	}
	if wc.regs[status.RegsPerValue+status.RegVersion] != 1 {
		t.Fatalf("second block version not written")
	}
}

func TestWriter_FullWriteSplitsLargeRegions(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newWriter(t, cli)

	if err := w.WriteSnapshot(snapshot(40, 1)); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}

	total := 0
	for _, wc := range cli.writes {
		if len(wc.regs) > 123 {
			t.Fatalf("write of %d regs exceeds protocol limit", len(wc.regs))
		}
		if want := 100 + uint16(total); wc.addr != want {
			t.Fatalf("batch addr: got=%d want=%d", wc.addr, want)
		}
		total += len(wc.regs)
	}
	if total != 40*status.RegsPerValue {
		t.Fatalf("total regs: got=%d", total)
	}
}

func TestWriter_IncrementalWritesOnlyChanges(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newWriter(t, cli)

	s := snapshot(3, 1)
	if err := w.WriteSnapshot(s); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}

	// unchanged: nothing written
	before := len(cli.writes)
	if err := w.WriteSnapshot(s); err != nil {
		t.Fatalf("incremental failed: %v", err)
	}
	if len(cli.writes) != before {
		t.Fatalf("unchanged snapshot caused %d writes", len(cli.writes)-before)
	}

	s = snapshot(3, 1)
	s[1].Version = 2
	if err := w.WriteSnapshot(s); err != nil {
		t.Fatalf("incremental failed: %v", err)
	}

	wc := cli.last()
	wantAddr := uint16(100 + status.RegsPerValue + status.RegVersion)
	if wc.addr != wantAddr || len(wc.regs) != 1 || wc.regs[0] != 2 {
		t.Fatalf("unexpected incremental write: %+v", wc)
	}
}

func TestWriter_FailureForcesFullReassert(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newWriter(t, cli)

	if err := w.WriteSnapshot(snapshot(2, 1)); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}

	cli.fail = true
	if err := w.WriteSnapshot(snapshot(2, 2)); err == nil {
		t.Fatalf("expected error")
	}

	cli.fail = false
	if err := w.WriteSnapshot(snapshot(2, 2)); err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if len(cli.last().regs) != 2*status.RegsPerValue {
		t.Fatalf("expected full re-assert after failure")
	}
}

func TestNewWriter_Rejects(t *testing.T) {
	if _, err := NewWriter(Plan{UnitID: 1}, nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewWriter(Plan{UnitID: 300}, &fakeEndpointClient{}); err == nil {
		t.Fatalf("expected error for unit id out of range")
	}
}

func TestChangedRuns(t *testing.T) {
	runs := changedRuns([]uint16{1, 2, 3, 4, 5}, []uint16{1, 9, 9, 4, 9})
	if len(runs) != 2 || runs[0] != (run{1, 3}) || runs[1] != (run{4, 5}) {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if r := changedRuns(nil, []uint16{1, 2}); len(r) != 1 || r[0] != (run{0, 2}) {
		t.Fatalf("missing prev must be fully changed: %+v", r)
	}
}

func TestRun_DeliversUntilClosed(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newWriter(t, cli)

	in := make(chan status.Snapshot, 2)
	in <- snapshot(1, 1)
	in <- snapshot(1, 2)
	close(in)

	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), in, w, nil) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not return")
	}
	if len(cli.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(cli.writes))
	}
}
