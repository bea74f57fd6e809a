package resilience

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DeadLetter is a message that will never be attempted again.
type DeadLetter struct {
	Key           []byte
	Payload       []byte
	OriginalTopic string
	Attempts      int
	Reason        string
	FirstSeenAt   time.Time
}

// DeadLetterSink stores dead letters for manual inspection.
type DeadLetterSink interface {
	SendToDLQ(ctx context.Context, dl DeadLetter) error
}

// TopicSink publishes dead letters to "<original topic><suffix>".
// The payload is forwarded unmodified, failure metadata goes to headers.
type TopicSink struct {
	producer Producer
	cfg      *Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewTopicSink(producer Producer, cfg *Config, logger *zap.Logger) *TopicSink {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TopicSink{
		producer: producer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *TopicSink) SendToDLQ(ctx context.Context, dl DeadLetter) error {
	headers := HeaderList{}

	// all values are of supported types
	_ = SetHeader[string](&headers, HeaderDLQReason, dl.Reason)
	_ = SetHeader[time.Time](&headers, HeaderDLQTimestamp, s.now())
	_ = SetHeader[string](&headers, HeaderDLQSourceTopic, dl.OriginalTopic)
	_ = SetHeader[int](&headers, HeaderDLQAttempts, dl.Attempts)

	if !dl.FirstSeenAt.IsZero() {
		_ = SetHeader[time.Time](&headers, HeaderDLQFirstSeen, dl.FirstSeenAt)
	}

	msg := &Message{
		Topic:     s.cfg.DLQTopic(dl.OriginalTopic),
		Key:       dl.Key,
		Value:     dl.Payload,
		Headers:   headers,
		Timestamp: s.now(),
	}

	ack, err := s.producer.Produce(ctx, msg)
	if err != nil {
		s.logger.Error("failed to publish dead letter",
			zap.String("dlq_topic", msg.Topic),
			zap.ByteString("key", dl.Key),
			zap.Error(err),
		)

		return errors.Wrapf(err, "publish to %s", msg.Topic)
	}

	s.logger.Debug("dead letter published",
		zap.String("dlq_topic", ack.Topic),
		zap.Int32("partition", ack.Partition),
		zap.Int64("offset", ack.Offset),
	)

	return nil
}
