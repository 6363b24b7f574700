package xeventbus

import (
	"context"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// BusBuilder constructs Bus instances.
type BusBuilder struct {
	logger         *xlog.Logger
	clock          xclock.Clock
	middlewares    []Middleware
	observers      []Observer
	defaultTimeout time.Duration
	poolWorkers    int
	poolBuffer     int
}

// NewBusBuilder returns a builder with production defaults.
func NewBusBuilder() *BusBuilder {
	return &BusBuilder{
		defaultTimeout: DefaultTimeout,
		poolWorkers:    4,
		poolBuffer:     1024,
	}
}

// WithLogger injects a custom xlog logger.
func (bb *BusBuilder) WithLogger(l *xlog.Logger) *BusBuilder {
	bb.logger = l
	return bb
}

// WithClock injects a custom xclock clock.
func (bb *BusBuilder) WithClock(c xclock.Clock) *BusBuilder {
	bb.clock = c
	return bb
}

// WithMiddleware adds processing middlewares applied to every consumer handler.
func (bb *BusBuilder) WithMiddleware(mw ...Middleware) *BusBuilder {
	if len(mw) == 0 {
		return bb
	}
	bb.middlewares = append(bb.middlewares, mw...)
	return bb
}

// WithObserver attaches observers for lifecycle events.
func (bb *BusBuilder) WithObserver(obs ...Observer) *BusBuilder {
	for _, o := range obs {
		if o != nil {
			bb.observers = append(bb.observers, o)
		}
	}
	return bb
}

// WithDefaultTimeout sets the request timeout used when a call passes no options.
func (bb *BusBuilder) WithDefaultTimeout(d time.Duration) *BusBuilder {
	if d > 0 {
		bb.defaultTimeout = d
	}
	return bb
}

// WithObserverPool sizes the async observer dispatch pool.
func (bb *BusBuilder) WithObserverPool(workers, bufferSize int) *BusBuilder {
	if workers > 0 {
		bb.poolWorkers = workers
	}
	if bufferSize > 0 {
		bb.poolBuffer = bufferSize
	}
	return bb
}

// Build assembles the bus, filling unset dependencies with defaults.
func (bb *BusBuilder) Build() *Bus {
	clk := bb.clock
	if clk == nil {
		clk = xclock.Default()
	}
	lg := bb.logger
	if lg == nil {
		lg = xlog.Default()
	}

	b := &Bus{
		registry:       NewRegistry(),
		clock:          clk,
		logger:         lg,
		middlewares:    bb.middlewares,
		defaultTimeout: bb.defaultTimeout,
		metrics:        &busMetrics{},
	}
	b.observerPool = NewObserverPool(context.Background(), bb.poolWorkers, bb.poolBuffer)

	// Attach a logging observer unless one was supplied externally.
	hasLoggingObserver := false
	for _, o := range bb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver {
		b.AddObserver(LoggingObserver{Logger: lg})
	}
	for _, o := range bb.observers {
		b.AddObserver(o)
	}

	return b
}

// New constructs a Bus via the builder and returns a close func for convenience.
func New(init func(b *BusBuilder)) (*Bus, func() error) {
	bb := NewBusBuilder()
	if init != nil {
		init(bb)
	}
	bus := bb.Build()
	closeFn := func() error { return bus.Close(context.Background()) }
	return bus, closeFn
}
