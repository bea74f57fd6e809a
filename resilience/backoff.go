package resilience

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// DefaultBackoff is the fixed delay between a failed attempt and its re-delivery.
const DefaultBackoff = 1 * time.Second

// BackoffStrategy computes the delay before the next attempt.
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt (0-indexed).
	NextDelay(attempt int) time.Duration
}

// ConstantBackoff waits the same delay after every failure.
type ConstantBackoff struct {
	delay time.Duration
}

// NewConstantBackoff creates a ConstantBackoff with the given delay.
func NewConstantBackoff(delay time.Duration) (*ConstantBackoff, error) {
	if delay <= 0 {
		return nil, errors.Errorf("delay must be > 0, got %v", delay)
	}

	return &ConstantBackoff{delay: delay}, nil
}

// NextDelay returns the configured delay regardless of attempt number.
func (c *ConstantBackoff) NextDelay(_ int) time.Duration {
	return c.delay
}

// LinearBackoff adds a fixed increment per attempt up to a cap.
type LinearBackoff struct {
	initialDelay time.Duration
	increment    time.Duration
	maxDelay     time.Duration
}

func NewLinearBackoff(initialDelay, increment, maxDelay time.Duration) (*LinearBackoff, error) {
	if initialDelay <= 0 {
		return nil, errors.Errorf("initialDelay must be > 0, got %v", initialDelay)
	}

	if increment < 0 {
		return nil, errors.Errorf("increment must be >= 0, got %v", increment)
	}

	if maxDelay < initialDelay {
		return nil, errors.Errorf("maxDelay (%v) must be >= initialDelay (%v)", maxDelay, initialDelay)
	}

	return &LinearBackoff{
		initialDelay: initialDelay,
		increment:    increment,
		maxDelay:     maxDelay,
	}, nil
}

func (l *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := l.initialDelay + l.increment*time.Duration(attempt)
	if delay > l.maxDelay {
		return l.maxDelay
	}

	return delay
}

// ExponentialBackoff multiplies the delay on every attempt up to a cap.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

func NewExponentialBackoff(initialDelay, maxDelay time.Duration, multiplier float64) (*ExponentialBackoff, error) {
	if initialDelay <= 0 {
		return nil, errors.Errorf("initialDelay must be > 0, got %v", initialDelay)
	}

	if maxDelay < initialDelay {
		return nil, errors.Errorf("maxDelay (%v) must be >= initialDelay (%v)", maxDelay, initialDelay)
	}

	if multiplier < 1.0 {
		return nil, errors.Errorf("multiplier must be >= 1.0, got %v", multiplier)
	}

	return &ExponentialBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		multiplier:   multiplier,
	}, nil
}

func (e *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(e.initialDelay) * math.Pow(e.multiplier, float64(attempt))
	if delay > float64(e.maxDelay) {
		return e.maxDelay
	}

	return time.Duration(delay)
}
