package xeventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ObserverPool dispatches bus events to observers asynchronously so that slow
// observers never block the request or publish path. The queue is bounded and
// non-blocking: events are dropped, and counted, when the buffer is full.
type ObserverPool struct {
	eventCh   chan *BusEvent
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	dropped   atomic.Uint64
	processed atomic.Uint64
}

// PoolStats is telemetry about the observer pool.
type PoolStats struct {
	Dropped      uint64
	Processed    uint64
	ActiveEvents int
	Workers      int
	BufferSize   int
}

// NewObserverPool starts a pool of dispatch goroutines. workers defaults to 4
// and bufferSize to 1024 when non-positive.
func NewObserverPool(ctx context.Context, workers, bufferSize int) *ObserverPool {
	if workers < 1 {
		workers = 4
	}
	if bufferSize < 1 {
		bufferSize = 1024
	}

	poolCtx, cancel := context.WithCancel(ctx)
	p := &ObserverPool{
		eventCh: make(chan *BusEvent, bufferSize),
		workers: workers,
		ctx:     poolCtx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Notify queues an event for asynchronous dispatch to the given observers.
// Non-blocking: the event is dropped if the buffer is full.
func (p *ObserverPool) Notify(e BusEvent, observers []Observer) {
	if len(observers) == 0 {
		return
	}

	e.observers = make([]Observer, len(observers))
	copy(e.observers, observers)

	select {
	case p.eventCh <- &e:
	default:
		p.dropped.Add(1)
	}
}

func (p *ObserverPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			// Drain what is already queued before exiting.
			for {
				select {
				case e := <-p.eventCh:
					p.dispatch(e)
				default:
					return
				}
			}
		case e := <-p.eventCh:
			p.dispatch(e)
			p.processed.Add(1)
		}
	}
}

// dispatch fans one event out to its observers, tolerating observer panics.
func (p *ObserverPool) dispatch(e *BusEvent) {
	if e == nil {
		return
	}
	for _, obs := range e.observers {
		if obs == nil {
			continue
		}
		func() {
			defer func() {
				// An observer panic must not take down the pool worker.
				_ = recover()
			}()
			obs.OnEvent(*e)
		}()
	}
}

// Close stops the pool, waiting up to timeout for queued events to drain.
func (p *ObserverPool) Close(timeout time.Duration) error {
	if p.closed.Swap(true) {
		return nil
	}

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrObserverPoolShutdownTimeout
	}
}

// Stats returns current pool statistics.
func (p *ObserverPool) Stats() PoolStats {
	return PoolStats{
		Dropped:      p.dropped.Load(),
		Processed:    p.processed.Load(),
		ActiveEvents: len(p.eventCh),
		Workers:      p.workers,
		BufferSize:   cap(p.eventCh),
	}
}
