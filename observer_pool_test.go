package xeventbus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverPool_DeliversEvents(t *testing.T) {
	pool := NewObserverPool(context.Background(), 2, 16)

	var got atomic.Uint64
	obs := ObserverFunc(func(e BusEvent) { got.Add(1) })

	for i := 0; i < 10; i++ {
		pool.Notify(BusEvent{Type: RequestDone}, []Observer{obs})
	}

	require.Eventually(t, func() bool { return got.Load() == 10 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, pool.Close(time.Second))

	stats := pool.Stats()
	assert.Equal(t, uint64(0), stats.Dropped)
}

func TestObserverPool_IsolatesObserverPanics(t *testing.T) {
	pool := NewObserverPool(context.Background(), 1, 16)

	var got atomic.Uint64
	bad := ObserverFunc(func(e BusEvent) { panic("observer bug") })
	good := ObserverFunc(func(e BusEvent) { got.Add(1) })

	pool.Notify(BusEvent{Type: PublishDone}, []Observer{bad, good})

	require.Eventually(t, func() bool { return got.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, pool.Close(time.Second))
}

func TestObserverPool_CloseIsIdempotent(t *testing.T) {
	pool := NewObserverPool(context.Background(), 1, 1)
	require.NoError(t, pool.Close(time.Second))
	require.NoError(t, pool.Close(time.Second))
}

func TestObserverPool_NoObserversFastPath(t *testing.T) {
	pool := NewObserverPool(context.Background(), 1, 1)
	defer func() { _ = pool.Close(time.Second) }()

	pool.Notify(BusEvent{Type: RequestStart}, nil)
	assert.Equal(t, uint64(0), pool.Stats().Dropped)
}
