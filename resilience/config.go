package resilience

import (
	"time"

	"github.com/pkg/errors"
)

// Config holds the retry policy of the consumer pipeline.
type Config struct {
	// MaxAttempts is the total number of attempts, the first delivery included.
	MaxAttempts int
	// Backoff is the fixed delay between a failure and the next attempt.
	Backoff time.Duration
	// DLQSuffix is appended to the source topic to name its dead-letter topic.
	DLQSuffix string

	// Workers is the number of dispatcher lanes.
	Workers int
	// LaneBuffer is the capacity of each lane queue.
	LaneBuffer int
}

// NewDefaultConfig creates a Config with defaults.
func NewDefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultBackoff,
		DLQSuffix:   "_dlq",
		Workers:     4,
		LaneBuffer:  64,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return errors.Errorf("MaxAttempts must be >= 1, got %d", c.MaxAttempts)
	}

	if c.Backoff <= 0 {
		return errors.Errorf("Backoff must be > 0, got %v", c.Backoff)
	}

	if c.DLQSuffix == "" {
		return errors.New("DLQSuffix cannot be empty")
	}

	if c.Workers < 1 {
		return errors.Errorf("Workers must be >= 1, got %d", c.Workers)
	}

	if c.LaneBuffer < 0 {
		return errors.Errorf("LaneBuffer must be >= 0, got %d", c.LaneBuffer)
	}

	return nil
}

// DLQTopic returns the dead-letter topic name for topic.
func (c *Config) DLQTopic(topic string) string {
	return topic + c.DLQSuffix
}
