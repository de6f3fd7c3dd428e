package cache

import (
	"context"
	"log/slog"
	"time"
)

// StaleDeleter is implemented by backends that can prune rows whose
// fetched_at predates a cutoff.
type StaleDeleter interface {
	DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// SweepLoop prunes entries older than maxAge on every tick until ctx is
// canceled. Stale rows are invisible to readers anyway, so sweep failures
// are logged and retried on the next tick.
func SweepLoop(ctx context.Context, s StaleDeleter, interval, maxAge time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.DeleteStale(ctx, maxAge)
			if err != nil {
				logger.Warn("stale cache sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("pruned stale cache entries", "count", n)
			}
		}
	}
}
