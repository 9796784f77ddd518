// internal/export/runner.go
package export

import (
	"context"
	"log/slog"

	"github.com/tamzrod/mesh-versioner/internal/status"
)

// Run delivers every snapshot received on in until ctx is done or in is
// closed. Failures are logged; the writer re-asserts on its next call.
func Run(ctx context.Context, in <-chan status.Snapshot, w SnapshotWriter, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-in:
			if !ok {
				return nil
			}
			if err := w.WriteSnapshot(s); err != nil {
				log.Warn("export failed", "values", len(s), "err", err)
			}
		}
	}
}
