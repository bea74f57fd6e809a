package resilience

import (
	"time"

	"go.uber.org/zap"
)

type engineOptions struct {
	logger    *zap.Logger
	backoff   BackoffStrategy
	metrics   *Metrics
	now       func() time.Time
	scheduler Scheduler
}

func newEngineOptions() *engineOptions {
	return &engineOptions{
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// Option configures an Engine or a Dispatcher.
type Option interface {
	Apply(cfg *engineOptions)
}

type optionFn func(cfg *engineOptions)

func (fn optionFn) Apply(cfg *engineOptions) {
	fn(cfg)
}

func WithLogger(logger *zap.Logger) Option {
	return optionFn(func(cfg *engineOptions) {
		if logger != nil {
			cfg.logger = logger
		}
	})
}

// WithBackoff overrides the constant backoff built from Config.Backoff.
func WithBackoff(backoff BackoffStrategy) Option {
	return optionFn(func(cfg *engineOptions) {
		cfg.backoff = backoff
	})
}

func WithMetrics(m *Metrics) Option {
	return optionFn(func(cfg *engineOptions) {
		cfg.metrics = m
	})
}

func WithClock(now func() time.Time) Option {
	return optionFn(func(cfg *engineOptions) {
		if now != nil {
			cfg.now = now
		}
	})
}

// WithScheduler replaces the timer based scheduler of a Dispatcher.
func WithScheduler(s Scheduler) Option {
	return optionFn(func(cfg *engineOptions) {
		cfg.scheduler = s
	})
}
