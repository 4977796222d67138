package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredChallengeStore removes spent or expired second-factor challenges
type ExpiredChallengeStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AttemptRetentionStore prunes login attempt rows past the retention window
type AttemptRetentionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper drops idle in-memory rate limit buckets
type Sweeper interface {
	Sweep()
}

// MaintenanceManager periodically prunes expired challenges, stale login
// attempt rows, and idle rate limit buckets
type MaintenanceManager struct {
	challenges ExpiredChallengeStore
	attempts   AttemptRetentionStore
	guard      Sweeper
	logger     *slog.Logger
	interval   time.Duration
	retention  time.Duration
	stopCh     chan struct{}
}

// NewMaintenanceManager creates a new maintenance manager
func NewMaintenanceManager(
	challenges ExpiredChallengeStore,
	attempts AttemptRetentionStore,
	guard Sweeper,
	logger *slog.Logger,
	interval time.Duration,
	retention time.Duration,
) *MaintenanceManager {
	return &MaintenanceManager{
		challenges: challenges,
		attempts:   attempts,
		guard:      guard,
		logger:     logger,
		interval:   interval,
		retention:  retention,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the periodic maintenance task
func (mm *MaintenanceManager) Start(ctx context.Context) {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	mm.runMaintenance(ctx)

	for {
		select {
		case <-ticker.C:
			mm.runMaintenance(ctx)
		case <-mm.stopCh:
			mm.logger.Info("maintenance manager stopped")
			return
		case <-ctx.Done():
			mm.logger.Info("maintenance manager context cancelled")
			return
		}
	}
}

func (mm *MaintenanceManager) runMaintenance(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now().UTC()

	mm.guard.Sweep()

	challengesDeleted, err := mm.challenges.DeleteExpired(cleanupCtx, now)
	if err != nil {
		mm.logger.Error("failed to delete expired challenges", slog.Any("error", err))
	} else if challengesDeleted > 0 {
		mm.logger.Info("expired challenge cleanup completed", slog.Int64("rows_deleted", challengesDeleted))
	}

	attemptsDeleted, err := mm.attempts.DeleteOlderThan(cleanupCtx, now.Add(-mm.retention))
	if err != nil {
		mm.logger.Error("failed to prune login attempts", slog.Any("error", err))
	} else if attemptsDeleted > 0 {
		mm.logger.Info("login attempt pruning completed", slog.Int64("rows_deleted", attemptsDeleted))
	}
}

// Stop signals the maintenance manager to stop
func (mm *MaintenanceManager) Stop() {
	close(mm.stopCh)
}
