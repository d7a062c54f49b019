package service

import (
	"context"
	"time"
)

// RunSweeper calls CompleteDueOrders once immediately and then every
// interval until ctx is cancelled.  Failures are logged and the next tick
// tries again.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		if _, err := e.CompleteDueOrders(ctx); err != nil && ctx.Err() == nil {
			e.log.WithError(err).Error("completion sweep failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
