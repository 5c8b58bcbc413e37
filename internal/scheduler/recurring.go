// Package scheduler drives time-based ledger work.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// DueProcessor materializes whatever is due at now.
type DueProcessor interface {
	ProcessDue(ctx context.Context, now time.Time) (int, error)
}

// RecurringTimer invokes ProcessDue on a fixed interval.
type RecurringTimer struct {
	processor DueProcessor
	interval  time.Duration
	clock     func() time.Time
	logger    *slog.Logger
}

// NewRecurringTimer creates a timer firing every interval. clock may be nil.
func NewRecurringTimer(processor DueProcessor, interval time.Duration, clock func() time.Time, logger *slog.Logger) *RecurringTimer {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RecurringTimer{processor: processor, interval: interval, clock: clock, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (t *RecurringTimer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("Recurring timer started", slog.Duration("interval", t.interval))
	t.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Recurring timer stopped")
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick runs a single sweep. Errors are logged; the next tick tries again.
func (t *RecurringTimer) Tick(ctx context.Context) {
	now := t.clock()
	processed, err := t.processor.ProcessDue(ctx, now)
	if err != nil {
		t.logger.Error("Recurring sweep failed", slog.String("error", err.Error()), slog.Time("now", now))
		return
	}
	if processed > 0 {
		t.logger.Info("Recurring sweep materialized transactions", slog.Int("processed", processed))
	}
}
