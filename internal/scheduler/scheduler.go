// Package scheduler runs the reminder dispatcher periodically.
package scheduler

import (
	"context"
	"time"

	"github.com/hray3182/daymemory/internal/logging"
	"github.com/hray3182/daymemory/internal/reminder"
)

// Runner performs one dispatch pass. It is implemented by
// reminder.Dispatcher.
type Runner interface {
	Today() time.Time
	RunDue(ctx context.Context, asOf time.Time) (reminder.RunSummary, error)
}

type Scheduler struct {
	runner        Runner
	log           logging.Logger
	checkInterval time.Duration
	startDelay    time.Duration
	notifyCh      chan struct{}
}

func New(runner Runner, interval time.Duration, log logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		runner:        runner,
		log:           log,
		checkInterval: interval,
		startDelay:    2 * time.Second,
		notifyCh:      make(chan struct{}, 1),
	}
}

// WithStartDelay sets how long Start waits before the first pass.
func (s *Scheduler) WithStartDelay(d time.Duration) *Scheduler {
	s.startDelay = d
	return s
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start blocks until ctx is done. Overlapping passes with other processes
// are safe because every instance is claimed before it is sent.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info(ctx, "scheduler started", "interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// let migrations and the HTTP server come up first
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.startDelay):
	}

	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info(context.WithoutCancel(ctx), "scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		case <-s.notifyCh:
			s.log.Debug(ctx, "scheduler triggered by notification")
			s.check(ctx)
		}
	}
}

// RunOnce performs a single pass for today. The dispatcher logs the summary.
func (s *Scheduler) RunOnce(ctx context.Context) (reminder.RunSummary, error) {
	return s.runner.RunDue(ctx, s.runner.Today())
}

func (s *Scheduler) check(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.log.Error(ctx, "reminder run failed", "error", err)
	}
}
