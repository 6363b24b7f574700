package xeventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Order(t *testing.T) {
	var trace []string
	mk := func(name string) Middleware {
		return func(next MessageHandler) MessageHandler {
			return func(ctx context.Context, msg *Message) (any, error) {
				trace = append(trace, name)
				return next(ctx, msg)
			}
		}
	}

	h := Chain(func(ctx context.Context, msg *Message) (any, error) {
		trace = append(trace, "handler")
		return nil, nil
	}, mk("outer"), nil, mk("inner"))

	_, err := h(context.Background(), NewMessage(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware()(func(ctx context.Context, msg *Message) (any, error) {
		panic("boom")
	})

	v, err := h(context.Background(), NewMessage(nil))
	require.Error(t, err)
	assert.Nil(t, v)
	assert.Contains(t, err.Error(), "boom")
}

func TestRetryMiddleware_BoundedAttempts(t *testing.T) {
	attempts := 0
	h := RetryMiddleware(RetryConfig{MaxAttempts: 3})(
		func(ctx context.Context, msg *Message) (any, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("transient")
			}
			return "ok", nil
		})

	v, err := h(context.Background(), NewMessage(nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, attempts)
}

func TestRetryMiddleware_RetryIf(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	h := RetryMiddleware(RetryConfig{
		MaxAttempts: 5,
		RetryIf:     func(err error) bool { return !errors.Is(err, permanent) },
	})(func(ctx context.Context, msg *Message) (any, error) {
		attempts++
		return nil, permanent
	})

	_, err := h(context.Background(), NewMessage(nil))
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryMiddleware_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	h := RetryMiddleware(RetryConfig{MaxAttempts: 10})(
		func(ctx context.Context, msg *Message) (any, error) {
			attempts++
			cancel()
			return nil, errors.New("transient")
		})

	_, err := h(ctx, NewMessage(nil))
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestTimeoutMiddleware(t *testing.T) {
	h := TimeoutMiddleware(20 * time.Millisecond)(
		func(ctx context.Context, msg *Message) (any, error) {
			select {
			case <-time.After(time.Second):
				return "late", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

	_, err := h(context.Background(), NewMessage(nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Non-positive duration is a pass-through.
	passthrough := TimeoutMiddleware(0)(func(ctx context.Context, msg *Message) (any, error) {
		return "fast", nil
	})
	v, err := passthrough(context.Background(), NewMessage(nil))
	require.NoError(t, err)
	assert.Equal(t, "fast", v)
}

func TestBusMiddleware_WrapsConsumers(t *testing.T) {
	var calls int
	counting := func(next MessageHandler) MessageHandler {
		return func(ctx context.Context, msg *Message) (any, error) {
			calls++
			return next(ctx, msg)
		}
	}

	bus := NewBusBuilder().WithMiddleware(counting).Build()
	t.Cleanup(func() { _ = bus.Close(context.Background()) })

	_, err := bus.RegisterConsumer("mw.echo", func(ctx context.Context, msg *Message) (any, error) {
		return msg.Body(), nil
	})
	require.NoError(t, err)

	_, err = bus.Request(context.Background(), "mw.echo", "x")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
