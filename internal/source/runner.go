// internal/source/runner.go
package source

import (
	"context"
	"time"
)

// Run starts the ticker loop and emits a Reading per cycle on out.
// One goroutine per value. No overlap. No retries.
func (p *Poller) Run(ctx context.Context, out chan<- Reading) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			select {
			case out <- p.PollOnce():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
