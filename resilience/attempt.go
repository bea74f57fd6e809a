package resilience

import (
	"time"

	"github.com/vmyroslav/ordertrain/order"
)

// DeliveryAttempt is the retry bookkeeping of one logical message.
type DeliveryAttempt struct {
	Order order.Order
	// Topic the order was consumed from.
	Topic string
	// Attempt starts at 1 for the first delivery.
	Attempt     int
	FirstSeenAt time.Time
	LastError   error
}

// NewDeliveryAttempt starts the bookkeeping for a freshly received order.
func NewDeliveryAttempt(o order.Order, topic string, now time.Time) *DeliveryAttempt {
	return &DeliveryAttempt{
		Order:       o,
		Topic:       topic,
		Attempt:     1,
		FirstSeenAt: now,
	}
}

// Next returns the bookkeeping for the re-delivery of the same order.
func (a *DeliveryAttempt) Next() *DeliveryAttempt {
	return &DeliveryAttempt{
		Order:       a.Order,
		Topic:       a.Topic,
		Attempt:     a.Attempt + 1,
		FirstSeenAt: a.FirstSeenAt,
		LastError:   a.LastError,
	}
}

// Outcome is the result of a single attempt.
type Outcome int

const (
	Processed Outcome = iota + 1
	RetryScheduled
	DeadLettered
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case RetryScheduled:
		return "retry_scheduled"
	case DeadLettered:
		return "dead_lettered"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further attempt follows.
func (o Outcome) Terminal() bool {
	return o == Processed || o == DeadLettered
}

// Decision tells the caller what to do with the message after an attempt.
type Decision struct {
	Outcome Outcome
	// Delay is set for RetryScheduled only.
	Delay time.Duration
}
