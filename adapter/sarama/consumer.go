package sarama

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vmyroslav/ordertrain/resilience"
)

// ConsumerAdapter wraps sarama.ConsumerGroup to implement resilience.Consumer.
// Messages are handed over with a commit handle; the offset of a partition is
// marked only up to the lowest message that has not been committed yet.
type ConsumerAdapter struct {
	consumerGroup sarama.ConsumerGroup
	logger        *zap.Logger
}

// NewConsumerAdapter creates a resilience.Consumer from a Sarama ConsumerGroup.
func NewConsumerAdapter(cg sarama.ConsumerGroup, logger *zap.Logger) *ConsumerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ConsumerAdapter{consumerGroup: cg, logger: logger}
}

// Consume joins the group and blocks until ctx is canceled or the group fails.
func (c *ConsumerAdapter) Consume(ctx context.Context, topics []string, handler resilience.ConsumerHandler) error {
	groupHandler := &consumerGroupHandler{
		handler: handler,
		logger:  c.logger,
	}

	// Consume returns on every rebalance, rejoin until canceled
	for {
		if err := c.consumerGroup.Consume(ctx, topics, groupHandler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}

			return errors.Wrap(err, "consumer group failed")
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Errors exposes the asynchronous consumer group errors.
func (c *ConsumerAdapter) Errors() <-chan error {
	return c.consumerGroup.Errors()
}

func (c *ConsumerAdapter) Close() error {
	return c.consumerGroup.Close()
}

// consumerGroupHandler adapts resilience.ConsumerHandler to sarama.ConsumerGroupHandler.
type consumerGroupHandler struct {
	handler resilience.ConsumerHandler
	logger  *zap.Logger
}

func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("partitions assigned",
		zap.String("member_id", session.MemberID()),
		zap.Any("claims", session.Claims()),
	)

	return nil
}

func (h *consumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("partitions revoked", zap.String("member_id", session.MemberID()))

	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(
	session sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	tracker := NewOffsetTracker()
	ctx := session.Context()

	defer func() {
		if pending := tracker.Pending(); pending > 0 {
			h.logger.Info("claim released with uncommitted messages",
				zap.String("topic", claim.Topic()),
				zap.Int32("partition", claim.Partition()),
				zap.Int("pending", pending),
			)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			resolve := tracker.Track(msg.Offset)
			commit := func() {
				if mark, advanced := resolve(); advanced {
					session.MarkOffset(msg.Topic, msg.Partition, mark, "")
				}
			}

			if err := h.handler.Handle(ctx, NewMessage(msg), commit); err != nil {
				// the session ended under the handler, the message is fetched again by the next owner
				if ctx.Err() != nil {
					return nil
				}

				return errors.Wrapf(err, "handle %s/%d@%d", msg.Topic, msg.Partition, msg.Offset)
			}
		}
	}
}
