package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"RecordSync/internal/logging"
	"RecordSync/internal/ports"
)

// Scheduler wires the periodic driver with the update pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	stop     <-chan struct{}
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring update runs. The
// stop channel is handed to every run so a graceful interrupt ends the
// current pass between issues.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, stop <-chan struct{}, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, stop: stop, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled update", "trigger", trigger.Format(time.RFC3339))
		_, err := s.pipeline.Update(ctx, RunOptions{Stop: s.stop})
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			s.logger.Info("scheduled update canceled")
		default:
			s.logger.Error("scheduled update failed", "err", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
