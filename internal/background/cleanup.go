package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptPurger removes expired PIN attempt ledger rows
type AttemptPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// BucketSweeper removes elapsed rate-limit buckets
type BucketSweeper interface {
	Sweep() int
}

// CleanupManager runs the periodic housekeeping tasks: the rate-limit
// bucket sweep and the attempt ledger retention purge. Both are
// best-effort; correctness never depends on either running.
type CleanupManager struct {
	purger        AttemptPurger
	sweeper       BucketSweeper
	logger        *slog.Logger
	purgeInterval time.Duration
	sweepInterval time.Duration
	stopCh        chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(purger AttemptPurger, sweeper BucketSweeper, logger *slog.Logger, purgeInterval, sweepInterval time.Duration) *CleanupManager {
	return &CleanupManager{
		purger:        purger,
		sweeper:       sweeper,
		logger:        logger,
		purgeInterval: purgeInterval,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the periodic cleanup tasks and blocks until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	purgeTicker := time.NewTicker(cm.purgeInterval)
	defer purgeTicker.Stop()

	sweepTicker := time.NewTicker(cm.sweepInterval)
	defer sweepTicker.Stop()

	// Run the purge immediately on startup
	cm.runPurge(ctx)

	for {
		select {
		case <-purgeTicker.C:
			cm.runPurge(ctx)
		case <-sweepTicker.C:
			if removed := cm.sweeper.Sweep(); removed > 0 {
				cm.logger.Info("rate limit buckets swept", slog.Int("removed", removed))
			}
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runPurge(ctx context.Context) {
	purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.purger.DeleteExpired(purgeCtx)
	if err != nil {
		cm.logger.Error("failed to purge expired pin attempts", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired pin attempts purged", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
