// Package scheduler runs the two pipeline trigger operations on an
// in-process cron. Deployments behind an external cron (or a platform
// scheduler hitting the trigger endpoints) can disable it.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fsakai/autopost/internal/service"
)

// Scheduler drives the pipeline once per minute. The matcher's exact
// "HH:MM" matching requires at least minute cadence — a slower tick
// silently skips slots.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *service.Pipeline
	logger   *slog.Logger
}

// New creates a Scheduler around the pipeline.
func New(pipeline *service.Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		pipeline: pipeline,
		logger:   logger,
	}
}

// Start registers the minute jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("* * * * *", s.tick)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("cadence", "every minute"))
	return nil
}

// Stop halts the cron loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// tick runs both trigger operations for the current instant. Each is a
// finite computation over persisted state; errors are logged and the
// next tick starts fresh.
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()

	if report, err := s.pipeline.RunMatchAndDispatch(ctx, now); err != nil {
		s.logger.Error("generation run failed", slog.String("error", err.Error()))
	} else if report.Generated > 0 {
		s.logger.Info("generation run", slog.Int("generated", report.Generated))
	}

	if outcomes, err := s.pipeline.RunDispatch(ctx, now); err != nil {
		s.logger.Error("dispatch run failed", slog.String("error", err.Error()))
	} else if len(outcomes) > 0 {
		s.logger.Info("dispatch run", slog.Int("processed", len(outcomes)))
	}
}
