package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/energizer-project/bnetchat/internal/config"
)

type fakePruner struct {
	cutoffs []time.Time
}

func (f *fakePruner) PruneMessages(cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, nil
}

func TestNextCleanupTime(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		cleanupTime string
		want        time.Time
	}{
		{"later today", "18:00", time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)},
		{"already passed", "04:00", time.Date(2024, 6, 11, 4, 0, 0, 0, time.UTC)},
		{"exactly now", "12:30", time.Date(2024, 6, 11, 12, 30, 0, 0, time.UTC)},
		{"malformed uses default", "soon", time.Date(2024, 6, 11, 4, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(config.StorageConfig{CleanupTime: tt.cleanupTime, RetentionDays: 1}, &fakePruner{})
			s.now = func() time.Time { return now }
			assert.Equal(t, tt.want, s.nextCleanupTime())
		})
	}
}

func TestStartPrunesImmediately(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	store := &fakePruner{}
	s := NewScheduler(config.StorageConfig{RetentionDays: 7, CleanupTime: "04:00"}, store)
	s.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)

	assert.Equal(t, []time.Time{now.Add(-7 * 24 * time.Hour)}, store.cutoffs)
}

func TestStartDisabled(t *testing.T) {
	store := &fakePruner{}
	NewScheduler(config.StorageConfig{RetentionDays: 0}, store).Start(context.Background())
	assert.Empty(t, store.cutoffs)
}
