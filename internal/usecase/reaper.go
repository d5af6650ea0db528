package usecase

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultReaperInterval = 5 * time.Minute
	DefaultIdleThreshold  = 5 * time.Minute
)

// EvictIdle drops games with no connected players that have been idle longer than threshold.
func (that *GameManager) EvictIdle(ctx context.Context, threshold time.Duration) ([]string, error) {
	evicted, err := that.gameRepo.DeleteIdle(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to delete idle games: %w", err)
	}

	that.metrics.GamesEvicted(len(evicted))

	return evicted, nil
}

// RunReaper calls EvictIdle every interval until ctx is done.
func (that *GameManager) RunReaper(ctx context.Context, interval, threshold time.Duration) {
	log := that.logger.With("method", "RunReaper")

	if interval <= 0 {
		interval = DefaultReaperInterval
	}

	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("reaper started", "interval", interval, "idle_threshold", threshold)

	for {
		select {
		case <-ctx.Done():
			log.Info("reaper stopped")
			return
		case <-ticker.C:
			evicted, err := that.EvictIdle(ctx, threshold)
			if err != nil {
				log.Error("failed to evict idle games", "error", err)
				continue
			}

			if len(evicted) > 0 {
				log.Info("idle games evicted", "count", len(evicted), "codes", evicted)
			}
		}
	}
}
