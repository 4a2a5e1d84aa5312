package scheduler

import (
	"context"
	"log/slog"
	"time"

	"ddrelay/internal/domain"
)

// Runner performs a single tick.
type Runner interface {
	Run(ctx context.Context) (*domain.CycleStats, error)
}

type Scheduler struct {
	runner      Runner
	interval    time.Duration
	tickTimeout time.Duration
	logger      *slog.Logger
}

// NewScheduler creates a scheduler firing every interval. A positive
// tickTimeout bounds each tick; zero leaves ticks unbounded.
func NewScheduler(runner Runner, interval, tickTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:      runner,
		interval:    interval,
		tickTimeout: tickTimeout,
		logger:      logger.With("component", "scheduler"),
	}
}

// Start runs a tick immediately and then on every interval until ctx is
// cancelled. Tick errors are logged; the loop keeps going.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "tick_timeout", s.tickTimeout)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.tickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.tickTimeout)
		defer cancel()
	}

	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("tick failed", "error", err)
	}
}
