package xeventbus

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig controls retry behavior for RetryMiddleware. Retries happen only
// when a caller explicitly installs the middleware; the dispatch path itself
// never retries, whatever DeliveryOptions.RetryAttempts says.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first execution.
	MaxAttempts int
	// Backoff computes the base wait before the next attempt.
	Backoff func(attempt int) time.Duration
	// RetryIf, when provided, returns true if the error should be retried.
	// If nil, all errors are retried (bounded by MaxAttempts).
	RetryIf func(err error) bool
	// Jitter adds up to [0, Jitter] random delay to the base backoff.
	Jitter time.Duration
}

// RetryMiddleware provides bounded, selective retries around a handler.
func RetryMiddleware(cfg RetryConfig) Middleware {
	return func(next MessageHandler) MessageHandler {
		return func(ctx context.Context, msg *Message) (any, error) {
			attempts := cfg.MaxAttempts
			if attempts < 1 {
				attempts = 1
			}
			shouldRetry := cfg.RetryIf
			if shouldRetry == nil {
				shouldRetry = func(error) bool { return true }
			}

			var lastErr error
			for i := 1; i <= attempts; i++ {
				v, err := next(ctx, msg)
				if err == nil {
					return v, nil
				}
				lastErr = err
				// Stop once the invocation context is cancelled or expired.
				if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, lastErr
				}
				if i == attempts || !shouldRetry(lastErr) {
					return nil, lastErr
				}
				if cfg.Backoff != nil {
					wait := cfg.Backoff(i)
					if cfg.Jitter > 0 {
						wait += time.Duration(rand.Int63n(int64(cfg.Jitter)))
					}
					select {
					case <-ctx.Done():
						return nil, lastErr
					case <-time.After(wait):
					}
				}
			}
			return nil, lastErr
		}
	}
}

// TimeoutMiddleware enforces a per-handler processing cap below the request
// deadline. When exceeded, it returns context.DeadlineExceeded.
func TimeoutMiddleware(d time.Duration) Middleware {
	if d <= 0 {
		return func(next MessageHandler) MessageHandler { return next }
	}
	return func(next MessageHandler) MessageHandler {
		return func(ctx context.Context, msg *Message) (any, error) {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type outcome struct {
				v   any
				err error
			}
			done := make(chan outcome, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						done <- outcome{err: fmt.Errorf("panic recovered: %v", r)}
					}
				}()
				v, err := next(tctx, msg)
				done <- outcome{v: v, err: err}
			}()

			select {
			case <-tctx.Done():
				return nil, tctx.Err()
			case out := <-done:
				return out.v, out.err
			}
		}
	}
}

// RecoveryMiddleware converts handler panics into errors so they surface as
// classified execution failures instead of crashing the dispatcher.
func RecoveryMiddleware() Middleware {
	return func(next MessageHandler) MessageHandler {
		return func(ctx context.Context, msg *Message) (v any, err error) {
			defer func() {
				if r := recover(); r != nil {
					v = nil
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// Chain composes middlewares around a handler in order.
func Chain(h MessageHandler, mws ...Middleware) MessageHandler {
	if len(mws) == 0 {
		return h
	}
	wrapped := h
	// Apply in reverse so that the first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
