package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ncecere/holy_coop/backend/internal/guardrails"
)

// Metrics receives attempt and generation observations.
type Metrics interface {
	RecordAttempt(ctx context.Context, provider, outcome string, duration time.Duration)
	RecordGeneration(ctx context.Context, outcome, provider string, cost decimal.Decimal)
}

// Guard screens the subject description before any provider is called.
type Guard interface {
	PreCheck(ctx context.Context, input guardrails.PreCheckInput) (guardrails.Result, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithGuard(g Guard) Option {
	return func(o *Orchestrator) {
		o.guard = g
	}
}

// WithSleep replaces the retry back-off wait; tests use it to skip real delays.
func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
