// Package pipeline wires consumed order messages into the retry dispatcher.
package pipeline

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vmyroslav/ordertrain/fault"
	"github.com/vmyroslav/ordertrain/order"
	"github.com/vmyroslav/ordertrain/resilience"
	"github.com/vmyroslav/ordertrain/stats"
)

// MalformedReason prefixes the dead-letter reason of undecodable payloads.
const MalformedReason = "malformed payload"

// Submitter accepts deliveries for processing.
type Submitter interface {
	Submit(ctx context.Context, d resilience.Delivery) error
}

// OrderHandler decodes consumed messages and submits them to the dispatcher.
// Payloads that are not valid orders are dead-lettered right away.
type OrderHandler struct {
	submitter Submitter
	sink      resilience.DeadLetterSink
	logger    *zap.Logger
}

func NewOrderHandler(submitter Submitter, sink resilience.DeadLetterSink, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderHandler{
		submitter: submitter,
		sink:      sink,
		logger:    logger,
	}
}

func (h *OrderHandler) Handle(ctx context.Context, msg *resilience.Message, commit resilience.CommitFunc) error {
	o, err := order.Unmarshal(msg.Value)
	if err != nil {
		return h.rejectMalformed(ctx, msg, commit, err)
	}

	h.logger.Debug("order received",
		zap.String("order_id", o.ID),
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	return h.submitter.Submit(ctx, resilience.Delivery{
		Order:  o,
		Topic:  msg.Topic,
		Key:    msg.Key,
		Commit: commit,
	})
}

func (h *OrderHandler) rejectMalformed(ctx context.Context, msg *resilience.Message, commit resilience.CommitFunc, cause error) error {
	h.logger.Error("malformed order dead-lettered",
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.Error(cause),
	)

	err := h.sink.SendToDLQ(ctx, resilience.DeadLetter{
		Key:           msg.Key,
		Payload:       msg.Value,
		OriginalTopic: msg.Topic,
		Reason:        errors.Wrap(cause, MalformedReason).Error(),
	})
	if err != nil {
		return errors.Wrapf(err, "dead letter malformed message at offset %d", msg.Offset)
	}

	commit()

	return nil
}

// NewProcessor returns the processing function: it fails whenever the injector fires.
func NewProcessor(injector fault.Injector) resilience.HandlerFunc {
	return func(_ context.Context, o order.Order) error {
		if injector.ShouldFail() {
			return errors.WithMessagef(fault.ErrSimulatedFailure, "order %s", o.ID)
		}

		return nil
	}
}

// RecordStats returns the success hook feeding the aggregator.
func RecordStats(aggregator *stats.Aggregator, logger *zap.Logger) resilience.ProcessedFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(_ context.Context, o order.Order) {
		product, overall := aggregator.Record(o.Product, o.Price)

		logger.Info("order aggregated",
			zap.String("order_id", o.ID),
			zap.String("product", o.Product),
			zap.Int64("product_count", product.Count),
			zap.String("product_average", fmt.Sprintf("%.2f", product.Average())),
			zap.Int64("overall_count", overall.Count),
			zap.String("overall_average", fmt.Sprintf("%.2f", overall.Average())),
		)
	}
}
