// Package reaper periodically cancels checkout snapshots whose TTL has passed.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer cancels every stale snapshot as of now and reports how many it released.
type Expirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// Reaper drives an Expirer on a fixed interval.
type Reaper struct {
	expirer  Expirer
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Reaper. A non-positive interval defaults to one minute.
func New(expirer Expirer, interval time.Duration, logger *zap.Logger) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{expirer: expirer, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps once per interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.logger.Info("checkout reaper started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ticker.C:
			// Failures are logged inside Sweep; the next tick retries.
			_, _ = r.Sweep(ctx)
		case <-ctx.Done():
			r.logger.Info("checkout reaper stopped")
			return
		}
	}
}

// Sweep expires stale snapshots once.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	n, err := r.expirer.ExpireStale(ctx, r.now())
	if err != nil {
		r.logger.Error("failed to expire checkouts", zap.Error(err))
		return n, err
	}
	if n > 0 {
		r.logger.Info("expired stale checkouts", zap.Int("count", n))
	}
	return n, nil
}
