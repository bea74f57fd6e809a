package resilience

import (
	"context"
)

// Ack is the broker acknowledgement of a produced message.
type Ack struct {
	Topic     string
	Partition int32
	Offset    int64
}

// Producer publishes messages (library-agnostic).
type Producer interface {
	// Produce publishes msg to msg.Topic and waits for the broker acknowledgement.
	Produce(ctx context.Context, msg *Message) (Ack, error)

	Close() error
}

// CommitFunc marks a consumed message as handled in the transport.
// It must be called once, after the message reached a terminal outcome.
type CommitFunc func()

// ConsumerHandler receives consumed messages together with their commit handle.
// The handler owns the commit: the consumer never advances the offset on its own.
type ConsumerHandler interface {
	Handle(ctx context.Context, msg *Message, commit CommitFunc) error
}

// ConsumerHandlerFunc is a function adapter for ConsumerHandler.
type ConsumerHandlerFunc func(ctx context.Context, msg *Message, commit CommitFunc) error

func (f ConsumerHandlerFunc) Handle(ctx context.Context, msg *Message, commit CommitFunc) error {
	return f(ctx, msg, commit)
}

// Consumer consumes topics as part of a consumer group (library-agnostic).
type Consumer interface {
	// Consume blocks until ctx is canceled or an unrecoverable error occurs.
	Consume(ctx context.Context, topics []string, handler ConsumerHandler) error

	Close() error
}

// Admin performs topic administration (library-agnostic).
type Admin interface {
	// CreateTopic creates a topic; an already existing topic is not an error.
	CreateTopic(ctx context.Context, name string, partitions int32, replicationFactor int16, config map[string]string) error

	Close() error
}
