package resilience

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vmyroslav/ordertrain/order"
)

// Handler is the processing function wrapped by the Engine.
type Handler interface {
	Handle(ctx context.Context, o order.Order) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, o order.Order) error

func (f HandlerFunc) Handle(ctx context.Context, o order.Order) error {
	return f(ctx, o)
}

// Engine decides the fate of a single attempt: processed, retried later or dead-lettered.
// It never sleeps; the delay of a retry is returned to the caller.
type Engine struct {
	cfg     *Config
	handler Handler
	sink    DeadLetterSink
	backoff BackoffStrategy
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewEngine(cfg *Config, handler Handler, sink DeadLetterSink, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	if handler == nil {
		return nil, errors.New("handler is required")
	}

	if sink == nil {
		return nil, errors.New("dead letter sink is required")
	}

	o := newEngineOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}

	backoff := o.backoff
	if backoff == nil {
		var err error

		backoff, err = NewConstantBackoff(cfg.Backoff)
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		cfg:     cfg,
		handler: handler,
		sink:    sink,
		backoff: backoff,
		logger:  o.logger,
		metrics: o.metrics,
		now:     o.now,
	}, nil
}

// Process runs one attempt. The returned error is non-nil only when the
// message could not reach a decision: the dead letter was not published or
// the attempt failed while ctx was canceled (ErrAbandoned).
func (e *Engine) Process(ctx context.Context, a *DeliveryAttempt) (Decision, error) {
	log := e.logger.With(
		zap.String("order_id", a.Order.ID),
		zap.String("topic", a.Topic),
		zap.Int("attempt", a.Attempt),
	)

	err := e.handler.Handle(ctx, a.Order)
	if err == nil {
		e.metrics.observeAttempt(Processed.String())
		log.Info("order processed", zap.String("outcome", Processed.String()))

		return Decision{Outcome: Processed}, nil
	}

	a.LastError = err

	if ctx.Err() != nil {
		log.Debug("attempt abandoned", zap.Error(err))

		return Decision{}, errors.WithStack(ErrAbandoned)
	}

	if a.Attempt < e.cfg.MaxAttempts && IsRetriable(err) {
		delay := e.backoff.NextDelay(a.Attempt - 1)

		e.metrics.observeAttempt(RetryScheduled.String())
		log.Warn("order processing failed, retry scheduled",
			zap.String("outcome", RetryScheduled.String()),
			zap.Int("max_attempts", e.cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		return Decision{Outcome: RetryScheduled, Delay: delay}, nil
	}

	if err := e.deadLetter(ctx, a); err != nil {
		return Decision{}, err
	}

	e.metrics.observeAttempt(DeadLettered.String())
	e.metrics.observeDeadLetter(a.Topic)
	log.Error("order dead-lettered",
		zap.String("outcome", DeadLettered.String()),
		zap.String("dlq_topic", e.cfg.DLQTopic(a.Topic)),
		zap.Error(a.LastError),
	)

	return Decision{Outcome: DeadLettered}, nil
}

func (e *Engine) deadLetter(ctx context.Context, a *DeliveryAttempt) error {
	payload, err := order.Marshal(a.Order)
	if err != nil {
		return errors.Wrapf(err, "encode order %s for dead letter", a.Order.ID)
	}

	dl := DeadLetter{
		Key:           a.Order.Key(),
		Payload:       payload,
		OriginalTopic: a.Topic,
		Attempts:      a.Attempt,
		Reason:        a.LastError.Error(),
		FirstSeenAt:   a.FirstSeenAt,
	}

	if err := e.sink.SendToDLQ(ctx, dl); err != nil {
		return errors.Wrapf(err, "dead letter order %s", a.Order.ID)
	}

	return nil
}

// Now is the engine clock, used to stamp new attempts.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Config returns the retry policy.
func (e *Engine) Config() *Config {
	return e.cfg
}
