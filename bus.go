package xeventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

var _ HealthChecker = (*Bus)(nil)

// Bus routes address-based requests to single consumers and fans topic
// publishes out to zero or more listeners, all inside one process. The
// registration table is per-bus state; two buses share nothing.
type Bus struct {
	registry       *Registry
	clock          xclock.Clock
	logger         *xlog.Logger
	middlewares    []Middleware
	defaultTimeout time.Duration
	observerPool   *ObserverPool
	observersMu    sync.RWMutex
	observers      []Observer
	metrics        *busMetrics
	closed         atomic.Bool
	closeOnce      sync.Once
}

// busMetrics uses lock-free atomics on the hot paths.
type busMetrics struct {
	requests       atomic.Uint64
	replies        atomic.Uint64
	timeouts       atomic.Uint64
	handlerErrors  atomic.Uint64
	published      atomic.Uint64
	listenerRuns   atomic.Uint64
	listenerErrors atomic.Uint64
	processingNs   atomic.Int64
}

// Metrics defines observable telemetry for the bus.
type Metrics struct {
	Requests            uint64
	Replies             uint64
	Timeouts            uint64
	HandlerErrors       uint64
	Published           uint64
	ListenerRuns        uint64
	ListenerErrors      uint64
	EventsDropped       uint64
	AvgProcessingTimeMs float64
}

// HealthStatus indicates bus health for liveness probes.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}

// RegisterConsumer binds the single handler for an address and returns the
// revocation handle. Fails with AlreadyRegisteredError if the address is
// occupied; the prior handler keeps serving in that case.
func (b *Bus) RegisterConsumer(address string, handler MessageHandler) (*Consumer, error) {
	return b.RegisterConsumerWithShape(address, handler, nil)
}

// RegisterConsumerWithShape additionally captures the expected response shape.
// Replies failing the shape check surface as HandlerExecutionError with an
// InvalidTypeError cause.
func (b *Bus) RegisterConsumerWithShape(address string, handler MessageHandler, shape Shape) (*Consumer, error) {
	// Recovery wraps first so configured middlewares observe panics as errors.
	wrapped := Chain(RecoveryMiddleware()(handler), b.middlewares...)
	if err := b.registry.RegisterConsumer(address, wrapped, shape); err != nil {
		return nil, err
	}
	return &Consumer{bus: b, address: address}, nil
}

// RegisterListener appends a handler to a topic's listener sequence. It never
// fails; a topic gains its sequence on first registration.
func (b *Bus) RegisterListener(topic string, handler EventHandler) *Listener {
	id := b.registry.RegisterListener(topic, handler)
	return &Listener{bus: b, topic: topic, id: id}
}

// ConsumerAddresses returns a snapshot of the registered consumer addresses.
func (b *Bus) ConsumerAddresses() []string {
	return b.registry.ConsumerAddresses()
}

// Listeners returns an ordered copy of the handlers registered on a topic.
func (b *Bus) Listeners(topic string) []EventHandler {
	return b.registry.Listeners(topic)
}

// Request sends a body to the consumer registered on an address and waits for
// the reply. Exactly one of HandlerNotFoundError, HandlerTimeoutError or
// HandlerExecutionError surfaces on failure; no raw handler failure escapes
// unclassified. RetryAttempts in the options is not acted upon.
func (b *Bus) Request(ctx context.Context, address string, body any, opts ...DeliveryOptions) (any, error) {
	handler, shape, ok := b.registry.LookupConsumer(address)
	if !ok {
		return nil, &HandlerNotFoundError{Address: address}
	}

	opt := DeliveryOptions{}
	if len(opts) > 0 {
		opt = opts[0]
	}
	opt = opt.normalize(b.defaultTimeout)

	msg := NewMessage(body)

	b.metrics.requests.Add(1)
	b.notifyAsync(BusEvent{Type: RequestStart, Address: address, MessageID: msg.ID()})
	start := b.clock.Now()

	resp, err := b.dispatch(ctx, address, handler, shape, msg, opt.Timeout)

	duration := b.clock.Since(start)
	b.recordProcessingTime(duration.Nanoseconds())
	b.notifyAsync(BusEvent{
		Type:      RequestDone,
		Address:   address,
		MessageID: msg.ID(),
		Duration:  duration,
		Err:       err,
	})

	switch {
	case err == nil:
		b.metrics.replies.Add(1)
	case errors.As(err, new(*HandlerTimeoutError)):
		b.metrics.timeouts.Add(1)
	default:
		b.metrics.handlerErrors.Add(1)
	}
	return resp, err
}

// dispatch runs one handler invocation as a cancellable unit of work bounded
// by the timeout, then validates the reply against the registered shape.
func (b *Bus) dispatch(ctx context.Context, address string, handler MessageHandler, shape Shape, msg *Message, timeout time.Duration) (any, error) {
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	hctx = injectLogger(hctx, b.logger)
	hctx = injectClock(hctx, b.clock)

	type outcome struct {
		v   any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := handler(hctx, msg)
		done <- outcome{v: v, err: err}
	}()

	select {
	case <-hctx.Done():
		// Deadline expiry has already cancelled the in-flight invocation.
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			return nil, &HandlerTimeoutError{Address: address, Timeout: timeout}
		}
		return nil, &HandlerExecutionError{Address: address, Cause: hctx.Err()}
	case out := <-done:
		if out.err != nil {
			// A handler surfacing its own deadline expiry still counts as a
			// timeout, not an execution failure.
			if errors.Is(out.err, context.DeadlineExceeded) && hctx.Err() != nil {
				return nil, &HandlerTimeoutError{Address: address, Timeout: timeout}
			}
			return nil, &HandlerExecutionError{Address: address, Cause: out.err}
		}
		if shape != nil && !shape.Satisfies(out.v) {
			return nil, &HandlerExecutionError{Address: address, Cause: &InvalidTypeError{
				Address:  address,
				Expected: shape.Name(),
				Actual:   actualTypeName(out.v),
			}}
		}
		return out.v, nil
	}
}

// Publish delivers a body to every listener registered on a topic and returns
// once all of them have run. Listeners start in registration order and run
// concurrently; a failing or panicking listener is isolated from its siblings
// and from the caller, so Publish never fails.
func (b *Bus) Publish(ctx context.Context, topic string, body any) {
	listeners := b.registry.Listeners(topic)

	b.metrics.published.Add(1)
	b.notifyAsync(BusEvent{Type: PublishStart, Topic: topic, Listeners: len(listeners)})
	start := b.clock.Now()

	if len(listeners) > 0 {
		hctx := injectClock(injectLogger(ctx, b.logger), b.clock)

		var wg sync.WaitGroup
		for _, h := range listeners {
			wg.Add(1)
			go func(fn EventHandler) {
				defer wg.Done()
				b.runListener(hctx, topic, fn, body)
			}(h)
		}
		wg.Wait()
	}

	b.notifyAsync(BusEvent{
		Type:      PublishDone,
		Topic:     topic,
		Listeners: len(listeners),
		Duration:  b.clock.Since(start),
	})
}

// runListener invokes one listener, swallowing its error or panic after
// logging and counting it.
func (b *Bus) runListener(ctx context.Context, topic string, fn EventHandler, body any) {
	b.metrics.listenerRuns.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("listener panic recovered: %v", r)
			b.metrics.listenerErrors.Add(1)
			b.logger.With(xlog.Str("topic", topic)).Warn().Err(err).Msg("xeventbus: listener panicked")
			b.notifyAsync(BusEvent{Type: ListenerError, Topic: topic, Err: err})
		}
	}()

	if err := fn(ctx, body); err != nil {
		b.metrics.listenerErrors.Add(1)
		b.logger.With(xlog.Str("topic", topic)).Warn().Err(err).Msg("xeventbus: listener failed")
		b.notifyAsync(BusEvent{Type: ListenerError, Topic: topic, Err: err})
	}
}

// GetMetrics returns current bus metrics.
func (b *Bus) GetMetrics() Metrics {
	return Metrics{
		Requests:            b.metrics.requests.Load(),
		Replies:             b.metrics.replies.Load(),
		Timeouts:            b.metrics.timeouts.Load(),
		HandlerErrors:       b.metrics.handlerErrors.Load(),
		Published:           b.metrics.published.Load(),
		ListenerRuns:        b.metrics.listenerRuns.Load(),
		ListenerErrors:      b.metrics.listenerErrors.Load(),
		EventsDropped:       b.observerPool.Stats().Dropped,
		AvgProcessingTimeMs: float64(b.metrics.processingNs.Load()) / 1e6,
	}
}

// Health reports bus health derived from the error rate.
func (b *Bus) Health(_ context.Context) HealthStatus {
	if b.closed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: b.clock.Now(),
			Message:   "bus is closed",
		}
	}

	m := b.GetMetrics()
	status := "healthy"
	if failed := m.Timeouts + m.HandlerErrors; failed > 0 && m.Requests > 0 {
		if float64(failed)/float64(m.Requests) > 0.05 {
			status = "degraded"
		}
	}
	return HealthStatus{
		Status:    status,
		Metrics:   m,
		Timestamp: b.clock.Now(),
	}
}

// Close drains the async observer pool. The bus holds no external resources;
// the registration table stays usable, but telemetry stops flowing. Idempotent.
func (b *Bus) Close(_ context.Context) error {
	var closeErr error

	b.closeOnce.Do(func() {
		b.closed.Store(true)

		if b.observerPool != nil {
			if err := b.observerPool.Close(5 * time.Second); err != nil {
				b.logger.Warn().Err(err).Msg("xeventbus: observer pool shutdown timeout")
				closeErr = err
			}
		}
	})
	return closeErr
}

// AddObserver registers an observer for bus events.
func (b *Bus) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	b.observers = append(b.observers, obs)
	b.observersMu.Unlock()
}

// RemoveObserver removes a previously added observer.
func (b *Bus) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	b.observersMu.Lock()
	defer b.observersMu.Unlock()

	for i, o := range b.observers {
		if o == obs {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			break
		}
	}
}

// notifyAsync hands an event to the observer pool without blocking the caller.
func (b *Bus) notifyAsync(e BusEvent) {
	if b.observerPool == nil || b.closed.Load() {
		return
	}

	b.observersMu.RLock()
	n := len(b.observers)
	if n == 0 {
		b.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, n)
	copy(observers, b.observers)
	b.observersMu.RUnlock()

	b.observerPool.Notify(e, observers)
}

// recordProcessingTime tracks an exponential moving average of request latency.
func (b *Bus) recordProcessingTime(ns int64) {
	const alpha = 0.2
	current := b.metrics.processingNs.Load()
	if current == 0 {
		b.metrics.processingNs.Store(ns)
		return
	}
	b.metrics.processingNs.Store(int64(float64(ns)*alpha + float64(current)*(1-alpha)))
}
