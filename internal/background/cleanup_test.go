package background

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeChallengeStore struct {
	deletedBefore time.Time
	err           error
}

func (f *fakeChallengeStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.deletedBefore = now
	return 3, f.err
}

type fakeAttemptStore struct {
	cutoff time.Time
}

func (f *fakeAttemptStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 5, nil
}

type fakeSweeper struct {
	swept atomic.Int32
}

func (f *fakeSweeper) Sweep() { f.swept.Add(1) }

func TestMaintenanceManager_RunsAllTasks(t *testing.T) {
	challenges := &fakeChallengeStore{}
	attempts := &fakeAttemptStore{}
	sweeper := &fakeSweeper{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mm := NewMaintenanceManager(challenges, attempts, sweeper, logger, time.Minute, 24*time.Hour)
	mm.runMaintenance(context.Background())

	assert.Equal(t, int32(1), sweeper.swept.Load())
	assert.False(t, challenges.deletedBefore.IsZero())
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), attempts.cutoff, 2*time.Second)
}

func TestMaintenanceManager_StopHaltsLoop(t *testing.T) {
	challenges := &fakeChallengeStore{}
	attempts := &fakeAttemptStore{}
	sweeper := &fakeSweeper{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mm := NewMaintenanceManager(challenges, attempts, sweeper, logger, time.Hour, 24*time.Hour)

	done := make(chan struct{})
	go func() {
		mm.Start(context.Background())
		close(done)
	}()

	// Start runs one pass immediately before blocking on the ticker
	assert.Eventually(t, func() bool { return sweeper.swept.Load() >= 1 }, time.Second, 10*time.Millisecond)

	mm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintenance loop did not stop")
	}
}
