package resilience

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vmyroslav/ordertrain/order"
)

// Delivery is a consumed order together with its transport commit handle.
type Delivery struct {
	Order order.Order
	Topic string
	// Key selects the lane. Defaults to the order id.
	Key    []byte
	Commit CommitFunc
}

func (d Delivery) commit() {
	if d.Commit != nil {
		d.Commit()
	}
}

type envelope struct {
	delivery Delivery
	attempt  *DeliveryAttempt
}

// inflight holds the commits of duplicate deliveries that joined a running order.
type inflight struct {
	followers []CommitFunc
}

// ProcessedFunc is called exactly once per order that reached Processed,
// before the message is committed.
type ProcessedFunc func(ctx context.Context, o order.Order)

// Dispatcher runs deliveries through the Engine on a fixed set of lanes.
// A key always maps to the same lane, so attempts of one order are serialized.
// Retries are re-enqueued by the Scheduler, lanes never wait for a backoff.
type Dispatcher struct {
	engine      *Engine
	onProcessed ProcessedFunc
	scheduler   Scheduler
	logger      *zap.Logger
	metrics     *Metrics

	mu       sync.Mutex
	inflight map[string]*inflight

	lanes   []chan *envelope
	errs    chan error
	done    chan struct{}
	once    sync.Once
	running atomic.Bool
}

func NewDispatcher(engine *Engine, onProcessed ProcessedFunc, opts ...Option) (*Dispatcher, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}

	o := newEngineOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}

	scheduler := o.scheduler
	if scheduler == nil {
		scheduler = NewTimerScheduler()
	}

	cfg := engine.Config()

	lanes := make([]chan *envelope, cfg.Workers)
	for i := range lanes {
		lanes[i] = make(chan *envelope, cfg.LaneBuffer)
	}

	return &Dispatcher{
		engine:      engine,
		onProcessed: onProcessed,
		scheduler:   scheduler,
		logger:      o.logger,
		metrics:     o.metrics,
		inflight:    make(map[string]*inflight),
		lanes:       lanes,
		errs:        make(chan error, cfg.Workers*cfg.LaneBuffer+1),
		done:        make(chan struct{}),
	}, nil
}

// Submit enqueues the first attempt of a delivery. It blocks while the lane is full.
// A delivery of an order that is still in flight is not processed again: it is
// committed together with the running order once that reaches a terminal outcome.
func (d *Dispatcher) Submit(ctx context.Context, del Delivery) error {
	select {
	case <-d.done:
		return ErrDispatcherClosed
	default:
	}

	if len(del.Key) == 0 {
		del.Key = del.Order.Key()
	}

	if d.join(del) {
		d.logger.Debug("duplicate delivery joined in-flight order", zap.String("order_id", del.Order.ID))
		return nil
	}

	env := &envelope{
		delivery: del,
		attempt:  NewDeliveryAttempt(del.Order, del.Topic, d.engine.Now()),
	}

	select {
	case d.laneFor(del.Key) <- env:
		return nil
	case <-ctx.Done():
		d.release(del.Order.ID, false)
		return ctx.Err()
	case <-d.done:
		d.release(del.Order.ID, false)
		return ErrDispatcherClosed
	}
}

// join registers del as in flight. It reports false when del starts a new chain.
func (d *Dispatcher) join(del Delivery) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if chain, ok := d.inflight[del.Order.ID]; ok {
		chain.followers = append(chain.followers, del.commit)
		return true
	}

	d.inflight[del.Order.ID] = &inflight{}

	return false
}

// release ends the chain of an order. Joined duplicates are committed only
// when the chain itself was.
func (d *Dispatcher) release(id string, committed bool) {
	d.mu.Lock()
	chain, ok := d.inflight[id]
	delete(d.inflight, id)
	d.mu.Unlock()

	if !ok || !committed {
		return
	}

	for _, commit := range chain.followers {
		commit()
	}
}

// Run processes lanes until ctx is canceled or Close is called.
// Pending retries are abandoned and queued deliveries are left uncommitted.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("dispatcher is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	for i := range d.lanes {
		lane := d.lanes[i]

		g.Go(func() error {
			d.runLane(gCtx, lane)
			return nil
		})
	}

	select {
	case <-ctx.Done():
	case <-d.done:
	}

	d.Close()
	cancel()

	return g.Wait()
}

// Close stops accepting deliveries and cancels scheduled retries.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
		d.metrics.retriesAbandoned(d.scheduler.Close())
	})
}

// Errors reports deliveries that could not reach a terminal outcome.
// Those deliveries are not committed.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

func (d *Dispatcher) runLane(ctx context.Context, lane chan *envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case env := <-lane:
			d.handle(ctx, lane, env)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, lane chan *envelope, env *envelope) {
	id := env.attempt.Order.ID

	decision, err := d.engine.Process(ctx, env.attempt)
	if err != nil {
		d.release(id, false)

		if errors.Is(err, ErrAbandoned) {
			return
		}

		d.report(err)

		return
	}

	switch decision.Outcome {
	case Processed:
		if d.onProcessed != nil {
			d.onProcessed(ctx, env.attempt.Order)
		}

		env.delivery.commit()
		d.release(id, true)
	case DeadLettered:
		env.delivery.commit()
		d.release(id, true)
	case RetryScheduled:
		next := &envelope{delivery: env.delivery, attempt: env.attempt.Next()}

		d.metrics.retryScheduled()

		err := d.scheduler.Schedule(decision.Delay, func() {
			d.metrics.retryDelivered()
			d.redeliver(lane, next)
		})
		if err != nil {
			d.metrics.retryDelivered()
			d.release(id, false)

			if errors.Is(err, ErrSchedulerClosed) {
				d.logger.Debug("retry abandoned on shutdown", zap.String("order_id", next.attempt.Order.ID))
				return
			}

			d.report(errors.Wrapf(err, "schedule retry of order %s", next.attempt.Order.ID))
		}
	}
}

func (d *Dispatcher) redeliver(lane chan *envelope, env *envelope) {
	select {
	case lane <- env:
	case <-d.done:
		d.release(env.attempt.Order.ID, false)
		d.logger.Debug("retry abandoned on shutdown", zap.String("order_id", env.attempt.Order.ID))
	}
}

func (d *Dispatcher) report(err error) {
	d.logger.Error("delivery failed", zap.Error(err))

	select {
	case d.errs <- err:
	default:
	}
}

func (d *Dispatcher) laneFor(key []byte) chan *envelope {
	h := fnv.New32a()
	_, _ = h.Write(key)

	return d.lanes[h.Sum32()%uint32(len(d.lanes))]
}
