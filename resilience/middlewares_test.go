package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var calls []string

	mark := func(name string) Middleware {
		return func(next ConsumerHandler) ConsumerHandler {
			return ConsumerHandlerFunc(func(ctx context.Context, msg *Message, commit CommitFunc) error {
				calls = append(calls, name)
				return next.Handle(ctx, msg, commit)
			})
		}
	}

	h := Chain(ConsumerHandlerFunc(func(context.Context, *Message, CommitFunc) error {
		calls = append(calls, "handler")
		return nil
	}), mark("outer"), mark("inner"))

	require.NoError(t, h.Handle(context.Background(), &Message{}, func() {}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	mw := NewLoggingMiddleware(zap.New(core))

	msg := &Message{Topic: testTopicOrders, Partition: 1, Offset: 7}

	ok := mw(ConsumerHandlerFunc(func(context.Context, *Message, CommitFunc) error { return nil }))
	require.NoError(t, ok.Handle(context.Background(), msg, func() {}))

	handlerErr := errors.New("dispatcher closed")
	failing := mw(ConsumerHandlerFunc(func(context.Context, *Message, CommitFunc) error { return handlerErr }))
	assert.ErrorIs(t, failing.Handle(context.Background(), msg, func() {}), handlerErr)

	handled := logs.FilterMessage("message handled").AllUntimed()
	require.Len(t, handled, 1)
	assert.Equal(t, int64(7), handled[0].ContextMap()["offset"])

	assert.Equal(t, 1, logs.FilterMessage("message handling failed").Len())
}
