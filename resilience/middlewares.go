package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Middleware decorates a ConsumerHandler.
type Middleware func(next ConsumerHandler) ConsumerHandler

// Chain wraps h with mws; the first middleware is the outermost.
func Chain(h ConsumerHandler, mws ...Middleware) ConsumerHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}

// NewLoggingMiddleware logs every consumed message and the time the handler took to accept it.
func NewLoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next ConsumerHandler) ConsumerHandler {
		return ConsumerHandlerFunc(func(ctx context.Context, msg *Message, commit CommitFunc) error {
			start := time.Now()

			if err := next.Handle(ctx, msg, commit); err != nil {
				logger.Error("message handling failed",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)

				return err
			}

			logger.Debug("message handled",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Duration("duration", time.Since(start)),
			)

			return nil
		})
	}
}
