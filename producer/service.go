// Package producer publishes orders to the orders topic.
package producer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vmyroslav/ordertrain/order"
	"github.com/vmyroslav/ordertrain/resilience"
)

// ErrClosed is returned by Dispatch once the service is closing.
var ErrClosed = errors.New("producer service is closed")

// DefaultMaxInFlight bounds the background publishes started by Dispatch.
const DefaultMaxInFlight = 64

// DefaultBreakerSettings trips after 5 consecutive publish failures.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "order-producer",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// Service publishes orders keyed by order id.
// Publish failures are returned to the caller and never retried here.
type Service struct {
	producer resilience.Producer
	topic    string
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger

	// ctx outlives the HTTP request that dispatched the order
	ctx    context.Context
	cancel context.CancelFunc

	maxInFlight int
	inFlight    errgroup.Group

	mu     sync.RWMutex
	closed bool
}

type Option func(s *Service)

func WithBreakerSettings(settings gobreaker.Settings) Option {
	return func(s *Service) {
		s.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

// WithMaxInFlight sets how many background publishes may run at once.
// Dispatch blocks while the limit is reached.
func WithMaxInFlight(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxInFlight = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(producer resilience.Producer, topic string, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		producer:    producer,
		topic:       topic,
		breaker:     gobreaker.NewCircuitBreaker(DefaultBreakerSettings()),
		logger:      zap.NewNop(),
		ctx:         ctx,
		cancel:      cancel,
		maxInFlight: DefaultMaxInFlight,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.inFlight.SetLimit(s.maxInFlight)

	return s
}

// Publish sends the order and waits for the broker acknowledgement.
func (s *Service) Publish(ctx context.Context, o order.Order) (resilience.Ack, error) {
	payload, err := order.Marshal(o)
	if err != nil {
		return resilience.Ack{}, err
	}

	msg := &resilience.Message{
		Topic:     s.topic,
		Key:       o.Key(),
		Value:     payload,
		Timestamp: time.Now(),
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.producer.Produce(ctx, msg)
	})
	if err != nil {
		return resilience.Ack{}, errors.Wrapf(err, "publish order %s", o.ID)
	}

	return res.(resilience.Ack), nil
}

// Dispatch publishes the order in the background and logs the outcome.
// It blocks while the maximum number of publishes is in flight.
func (s *Service) Dispatch(o order.Order) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	s.inFlight.Go(func() error {
		ack, err := s.Publish(s.ctx, o)
		if err != nil {
			s.logger.Error("failed to publish order",
				zap.String("order_id", o.ID),
				zap.String("topic", s.topic),
				zap.Error(err),
			)

			return nil
		}

		s.logger.Info("order published",
			zap.String("order_id", o.ID),
			zap.String("product", o.Product),
			zap.Float64("price", o.Price),
			zap.Int32("partition", ack.Partition),
			zap.Int64("offset", ack.Offset),
		)

		return nil
	})

	return nil
}

// Close stops accepting dispatches and waits for the in-flight ones.
// The underlying producer is owned by the caller.
func (s *Service) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	_ = s.inFlight.Wait()
	s.cancel()

	return nil
}

// Topic is the destination of published orders.
func (s *Service) Topic() string {
	return s.topic
}
