// Package scheduler runs the background loops: the expiry sweep and the
// sandbox bot driver.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/alexanderramin/dealroom/internal/service"
)

const defaultSweepInterval = 5 * time.Minute

type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// ExpiryScheduler periodically closes sessions past their deadline. Sweeps
// are idempotent, so several schedulers may share one store.
type ExpiryScheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewExpiryScheduler(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *ExpiryScheduler {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpiryScheduler{sweeper: sweeper, interval: interval, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *ExpiryScheduler) Run(ctx context.Context) error {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and logs its outcome.
func (s *ExpiryScheduler) RunOnce(ctx context.Context) service.SweepResult {
	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
		return res
	}
	if res.Expired > 0 || res.Settled > 0 || res.Failed > 0 {
		s.logger.InfoContext(ctx, "expiry sweep",
			"expired", res.Expired, "settled", res.Settled, "failed", res.Failed)
	}
	return res
}
