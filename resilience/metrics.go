package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ordertrain"

// Metrics holds the prometheus collectors of the retry pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts       *prometheus.CounterVec
	deadLetters    *prometheus.CounterVec
	pendingRetries prometheus.Gauge
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "resilience",
			Name:      "attempts_total",
			Help:      "Processing attempts by outcome.",
		}, []string{"outcome"}),
		deadLetters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "resilience",
			Name:      "dead_letters_total",
			Help:      "Messages sent to the dead letter queue by source topic.",
		}, []string{"topic"}),
		pendingRetries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "resilience",
			Name:      "pending_retries",
			Help:      "Retries waiting for their backoff delay to elapse.",
		}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.deadLetters, m.pendingRetries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeAttempt(outcome string) {
	if m == nil {
		return
	}

	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeDeadLetter(topic string) {
	if m == nil {
		return
	}

	m.deadLetters.WithLabelValues(topic).Inc()
}

func (m *Metrics) retryScheduled() {
	if m == nil {
		return
	}

	m.pendingRetries.Inc()
}

func (m *Metrics) retryDelivered() {
	if m == nil {
		return
	}

	m.pendingRetries.Dec()
}

// retriesAbandoned accounts for retries dropped by the scheduler before they fired.
func (m *Metrics) retriesAbandoned(n int) {
	if m == nil {
		return
	}

	m.pendingRetries.Sub(float64(n))
}
