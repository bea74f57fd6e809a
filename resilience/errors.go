package resilience

import (
	"github.com/pkg/errors"
)

var (
	// ErrSchedulerClosed is returned when a retry is scheduled after shutdown began.
	ErrSchedulerClosed = errors.New("scheduler is closed")
	// ErrDispatcherClosed is returned by Submit once the dispatcher stopped.
	ErrDispatcherClosed = errors.New("dispatcher is closed")
	// ErrAbandoned is returned when an attempt fails while shutting down.
	// The attempt is neither retried nor dead-lettered.
	ErrAbandoned = errors.New("attempt abandoned on shutdown")
)

// RetriableError wraps an error to indicate if it should be retried.
// Permanent failures (e.g. validation) are dead-lettered without further attempts.
type RetriableError struct {
	Origin error
	Retry  bool
}

// NewRetriableError creates a RetriableError with the specified retry behavior.
func NewRetriableError(origin error, shouldRetry bool) *RetriableError {
	return &RetriableError{Origin: origin, Retry: shouldRetry}
}

func (e RetriableError) Error() string {
	return e.Origin.Error()
}

func (e RetriableError) Unwrap() error {
	return e.Origin
}

func (e RetriableError) ShouldRetry() bool {
	return e.Retry
}

// IsRetriable reports whether err is worth another attempt.
// Errors not marked with RetriableError are treated as transient.
func IsRetriable(err error) bool {
	var re *RetriableError
	if errors.As(err, &re) {
		return re.ShouldRetry()
	}

	var rv RetriableError
	if errors.As(err, &rv) {
		return rv.ShouldRetry()
	}

	return true
}
