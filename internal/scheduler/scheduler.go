// Package scheduler runs the daily history retention job.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/energizer-project/bnetchat/internal/config"
	"github.com/energizer-project/bnetchat/internal/util"
)

// Pruner deletes stored messages older than a cutoff.
type Pruner interface {
	PruneMessages(cutoff time.Time) (int64, error)
}

// Scheduler manages periodic background tasks.
type Scheduler struct {
	cfg    config.StorageConfig
	store  Pruner
	now    func() time.Time
	logger zerolog.Logger
}

// NewScheduler creates a scheduler pruning store according to cfg.
func NewScheduler(cfg config.StorageConfig, store Pruner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		store:  store,
		now:    time.Now,
		logger: util.ComponentLogger("scheduler"),
	}
}

// Start runs the retention job daily until ctx is cancelled. It returns at
// once when retention is disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.RetentionDays <= 0 {
		s.logger.Debug().Msg("history retention disabled")
		return
	}

	s.runCleaner()

	for {
		nextRun := s.nextCleanupTime()
		sleepDuration := nextRun.Sub(s.now())
		if sleepDuration <= 0 {
			sleepDuration = 24 * time.Hour
		}

		s.logger.Debug().
			Time("next_run", nextRun).
			Dur("sleep", sleepDuration).
			Msg("history cleaner scheduled")

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepDuration):
			s.runCleaner()
		}
	}
}

// runCleaner removes messages older than the retention period.
func (s *Scheduler) runCleaner() {
	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	n, err := s.store.PruneMessages(cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("history cleaner failed")
		return
	}
	s.logger.Info().
		Int64("deleted_messages", n).
		Int("retention_days", s.cfg.RetentionDays).
		Msg("history cleaner completed")
}

// nextCleanupTime returns the next time the cleanup should run.
func (s *Scheduler) nextCleanupTime() time.Time {
	parts := strings.Split(s.cfg.CleanupTime, ":")

	hour, minute := 4, 0 // Default: 4:00 AM
	if len(parts) >= 2 {
		fmt.Sscanf(parts[0], "%d", &hour)
		fmt.Sscanf(parts[1], "%d", &minute)
	}

	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
