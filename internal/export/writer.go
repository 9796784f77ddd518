// internal/export/writer.go
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/mesh-versioner/internal/status"
)

// maxWriteRegs keeps one FC16 request under the 123-register protocol limit
// while holding whole value blocks.
const maxWriteRegs = (123 / status.RegsPerValue) * status.RegsPerValue

// endpointClient is the exact contract the writer uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Plan says where value metadata lives on the endpoint.
type Plan struct {
	Endpoint    string
	UnitID      uint32
	BaseAddress uint16
}

// SnapshotWriter is the delivery-only contract for value metadata.
// It receives a snapshot and writes it verbatim.
type SnapshotWriter interface {
	WriteSnapshot(s status.Snapshot) error
}

// Writer delivers snapshots into holding registers.
// The first write and the first write after any failure re-assert every
// block; otherwise only changed registers are written.
type Writer struct {
	plan Plan
	cli  endpointClient

	needFull bool
	last     map[uint8][]uint16
}

func NewWriter(plan Plan, cli endpointClient) (*Writer, error) {
	if cli == nil {
		return nil, fmt.Errorf("export writer: missing client for endpoint %s", plan.Endpoint)
	}
	if plan.UnitID > 255 {
		return nil, fmt.Errorf("export writer: unit id %d out of range", plan.UnitID)
	}
	return &Writer{
		plan:     plan,
		cli:      cli,
		needFull: true,
		last:     make(map[uint8][]uint16),
	}, nil
}

// WriteSnapshot delivers s. On any write failure, the next call re-asserts
// the full region.
func (w *Writer) WriteSnapshot(s status.Snapshot) error {
	if w == nil || w.cli == nil {
		return errors.New("export writer: disabled")
	}
	if len(s) == 0 {
		return nil
	}

	blocks := make(map[uint8][]uint16, len(s))
	for _, v := range s {
		if v.Handle == 0 {
			return fmt.Errorf("export writer: handle 0 in snapshot")
		}
		blocks[v.Handle] = status.Encode(v)
	}

	if w.needFull {
		if err := w.writeFull(s, blocks); err != nil {
			w.needFull = true
			return fmt.Errorf("export writer: full block write failed: %w", err)
		}
		w.needFull = false
		w.last = blocks
		return nil
	}

	var errs []string

	for _, v := range s {
		regs := blocks[v.Handle]
		prev := w.last[v.Handle]

		for _, r := range changedRuns(prev, regs) {
			addr := w.blockAddr(v.Handle) + uint16(r.start)
			if err := w.cli.WriteRegisters(w.unitID(), addr, regs[r.start:r.end]); err != nil {
				errs = append(errs, fmt.Sprintf("value %d reg %d write failed: %v", v.Handle, r.start, err))
			}
		}
		w.last[v.Handle] = regs
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next call.
		w.needFull = true
		return errors.New("export writer: " + strings.Join(errs, " | "))
	}

	return nil
}

// writeFull writes every block of s, batching contiguous handles.
func (w *Writer) writeFull(s status.Snapshot, blocks map[uint8][]uint16) error {
	var (
		batch []uint16
		start uint8
		prev  uint8
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := w.cli.WriteRegisters(w.unitID(), w.blockAddr(start), batch)
		batch = nil
		return err
	}

	for _, v := range s {
		contiguous := len(batch) > 0 && v.Handle == prev+1
		if !contiguous || len(batch)+status.RegsPerValue > maxWriteRegs {
			if err := flush(); err != nil {
				return err
			}
			start = v.Handle
		}
		batch = append(batch, blocks[v.Handle]...)
		prev = v.Handle
	}
	return flush()
}

func (w *Writer) unitID() uint8 {
	return uint8(w.plan.UnitID)
}

func (w *Writer) blockAddr(handle uint8) uint16 {
	return w.plan.BaseAddress + status.BlockOffset(handle)
}

type run struct{ start, end int }

// changedRuns returns the contiguous register ranges where next differs from
// prev. A missing prev counts as fully changed.
func changedRuns(prev, next []uint16) []run {
	if len(prev) != len(next) {
		return []run{{0, len(next)}}
	}

	var out []run
	for i := 0; i < len(next); i++ {
		if prev[i] == next[i] {
			continue
		}
		j := i + 1
		for j < len(next) && prev[j] != next[j] {
			j++
		}
		out = append(out, run{i, j})
		i = j
	}
	return out
}
