// Package jobs holds the background maintenance tasks run by the server.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"pdf-form-drafts/internal/domain"
)

// TempMaxAge is how old a temp file must be before the sweep removes it.
const TempMaxAge = time.Hour

// TempSweeper removes abandoned temp files left by interrupted writes.
type TempSweeper interface {
	SweepTemp(maxAge time.Duration) (int, error)
}

// Scheduler runs the storage cleanup on a cron schedule (seconds field
// included).
type Scheduler struct {
	cron    *cron.Cron
	sweeper TempSweeper
	logger  domain.Logger
}

func NewScheduler(sweeper TempSweeper, logger domain.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start registers the sweep under schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.SweepOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Cleanup scheduler started", "schedule", schedule)
	return nil
}

// SweepOnce runs a single sweep.
func (s *Scheduler) SweepOnce() {
	removed, err := s.sweeper.SweepTemp(TempMaxAge)
	if err != nil {
		s.logger.Error("Temp sweep failed", err)
		return
	}
	if removed > 0 {
		s.logger.Info("Temp sweep removed stale files", "count", removed)
	}
}

// Stop stops scheduling and waits for a running sweep, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Cleanup scheduler did not stop in time")
	}
}
