package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/vmyroslav/ordertrain/fault"
	"github.com/vmyroslav/ordertrain/order"
)

// injectorHandler fails whenever inj says so.
func injectorHandler(inj fault.Injector) HandlerFunc {
	return func(_ context.Context, _ order.Order) error {
		if inj.ShouldFail() {
			return fault.ErrSimulatedFailure
		}

		return nil
	}
}

type recordingSink struct {
	mu      sync.Mutex
	letters []DeadLetter
	err     error
}

func (s *recordingSink) SendToDLQ(_ context.Context, dl DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.letters = append(s.letters, dl)

	return nil
}

func (s *recordingSink) Letters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]DeadLetter(nil), s.letters...)
}

type recordingProducer struct {
	mu       sync.Mutex
	messages []*Message
	err      error
}

func (p *recordingProducer) Produce(_ context.Context, msg *Message) (Ack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return Ack{}, p.err
	}

	p.messages = append(p.messages, msg)

	return Ack{Topic: msg.Topic, Partition: 0, Offset: int64(len(p.messages) - 1)}, nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) Messages() []*Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*Message(nil), p.messages...)
}

// manualScheduler keeps scheduled work until the test fires it.
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
	closed  bool
}

func (s *manualScheduler) Schedule(delay time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}

	s.pending = append(s.pending, fn)
	s.delays = append(s.delays, delay)

	return nil
}

func (s *manualScheduler) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := len(s.pending)
	s.closed = true
	s.pending = nil

	return dropped
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

func (s *manualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.delays...)
}

// FireAll runs everything scheduled so far.
func (s *manualScheduler) FireAll() int {
	s.mu.Lock()
	fns := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}

	return len(fns)
}

func mustOrder(id, product string, price float64) order.Order {
	o, err := order.New(id, product, price)
	if err != nil {
		panic(err)
	}

	return o
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	return func() time.Time { return ts }
}
