package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupSchedule runs queue cleanup hourly.
const DefaultCleanupSchedule = "@every 1h"

// Cleaner drops finished jobs past their retention window.
type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// Scheduler runs queue cleanup periodically.
type Scheduler struct {
	cleaner Cleaner
	cron    *cron.Cron
}

// NewScheduler creates a cleanup scheduler.
func NewScheduler(cleaner Cleaner) *Scheduler {
	return &Scheduler{cleaner: cleaner, cron: cron.New()}
}

// Start registers the cleanup job with a cron spec (descriptors such as
// "@every 30m" are accepted) and starts the scheduler.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("cleanup scheduler started", "schedule", schedule)
	return nil
}

// Stop stops the scheduler and waits for a running cleanup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("cleanup scheduler stopped")
}

// RunNow performs one cleanup pass synchronously.
func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.cleaner.Cleanup(ctx)
	if err != nil {
		slog.Error("queue cleanup failed", "error", err)
		return
	}
	slog.Info("queue cleanup finished", "removed", removed)
}
