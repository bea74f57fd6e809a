package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vmyroslav/ordertrain/fault"
	"github.com/vmyroslav/ordertrain/order"
	"github.com/vmyroslav/ordertrain/resilience"
	"github.com/vmyroslav/ordertrain/stats"
)

type memoryProducer struct {
	mu       sync.Mutex
	messages []*resilience.Message
}

func (p *memoryProducer) Produce(_ context.Context, msg *resilience.Message) (resilience.Ack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, msg)

	return resilience.Ack{Topic: msg.Topic, Offset: int64(len(p.messages))}, nil
}

func (p *memoryProducer) Close() error { return nil }

func (p *memoryProducer) Messages() []*resilience.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*resilience.Message(nil), p.messages...)
}

type pipelineFixture struct {
	handler    *OrderHandler
	producer   *memoryProducer
	aggregator *stats.Aggregator
}

func newPipeline(t *testing.T, injector fault.Injector) *pipelineFixture {
	t.Helper()

	logger := zaptest.NewLogger(t)

	cfg := resilience.NewDefaultConfig()
	cfg.Backoff = 10 * time.Millisecond

	producer := &memoryProducer{}
	sink := resilience.NewTopicSink(producer, cfg, logger)
	aggregator := stats.NewAggregator()

	engine, err := resilience.NewEngine(cfg, NewProcessor(injector), sink, resilience.WithLogger(logger))
	require.NoError(t, err)

	dispatcher, err := resilience.NewDispatcher(engine, RecordStats(aggregator, logger), resilience.WithLogger(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = dispatcher.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &pipelineFixture{
		handler:    NewOrderHandler(dispatcher, sink, logger),
		producer:   producer,
		aggregator: aggregator,
	}
}

func (f *pipelineFixture) deliver(t *testing.T, o order.Order, commit func()) {
	t.Helper()

	payload, err := order.Marshal(o)
	require.NoError(t, err)

	require.NoError(t, f.handler.Handle(context.Background(), &resilience.Message{
		Topic: "orders",
		Key:   o.Key(),
		Value: payload,
	}, commit))
}

func TestPipeline_FailTwiceThenSucceed(t *testing.T) {
	t.Parallel()

	injector := fault.NewFailTimes(2)
	f := newPipeline(t, injector)

	c := &commits{}
	o, _ := order.New("A1", "Laptop", 1000)

	f.deliver(t, o, c.commit)

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 3, injector.Calls())
	assert.Equal(t, stats.ProductStats{Total: 1000, Count: 1}, f.aggregator.Product("Laptop"))
	assert.InDelta(t, 1000.0, f.aggregator.OverallAverage(), 1e-9)
	assert.Empty(t, f.producer.Messages())
}

func TestPipeline_AlwaysFailingOrderIsDeadLettered(t *testing.T) {
	t.Parallel()

	f := newPipeline(t, fault.Always)

	c := &commits{}
	o, _ := order.New("A2", "Phone", 200)

	f.deliver(t, o, c.commit)

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	messages := f.producer.Messages()
	require.Len(t, messages, 1)

	dlq := messages[0]
	assert.Equal(t, "orders_dlq", dlq.Topic)
	assert.Equal(t, []byte("A2"), dlq.Key)

	got, err := order.Unmarshal(dlq.Value)
	require.NoError(t, err)
	assert.Equal(t, o, got)

	attempts, _ := resilience.GetHeaderValue[int](&dlq.Headers, resilience.HeaderDLQAttempts)
	source, _ := resilience.GetHeaderValue[string](&dlq.Headers, resilience.HeaderDLQSourceTopic)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "orders", source)

	assert.Zero(t, f.aggregator.Product("Phone").Count)
	assert.InDelta(t, 0.0, f.aggregator.OverallAverage(), 0)
}

func TestPipeline_SumsMatchOverall(t *testing.T) {
	t.Parallel()

	src := &fixedRand{}
	f := newPipeline(t, fault.Never)
	gen := order.NewGenerator(order.WithRandSource(src))

	c := &commits{}

	const total = 200
	for range total {
		f.deliver(t, gen.Random(), c.commit)
	}

	require.Eventually(t, func() bool { return c.count() == total }, 5*time.Second, 5*time.Millisecond)

	snapshot := f.aggregator.Snapshot()

	var sumTotal float64

	var sumCount int64

	for _, s := range snapshot.Products {
		sumTotal += s.Total
		sumCount += s.Count
	}

	assert.Equal(t, snapshot.Overall.Count, sumCount)
	assert.InDelta(t, snapshot.Overall.Total, sumTotal, 1e-6)
	assert.Equal(t, int64(total), snapshot.Overall.Count)
}

// fixedRand cycles through the catalog with a constant price factor.
type fixedRand struct {
	mu sync.Mutex
	n  int
}

func (r *fixedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.n++

	return r.n % n
}

func (r *fixedRand) Float64() float64 { return 0.5 }
