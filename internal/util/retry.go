package util

import (
	"context"
	"errors"
	"time"
)

// RetryOption configures the retry helpers.
type RetryOption func(*retryConfig)

type retryConfig struct {
	backoff time.Duration
	retryIf func(error) bool
}

// WithBackoff waits d before the second attempt and doubles the wait after
// every further failure.
func WithBackoff(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.backoff = d
	}
}

// WithRetryIf stops retrying as soon as fn reports an error as permanent.
func WithRetryIf(fn func(error) bool) RetryOption {
	return func(c *retryConfig) {
		c.retryIf = fn
	}
}

// Retry calls fn up to maxTries times until it returns a nil error.
// If maxTries <= 0, it defaults to 1. Returns the last error if all attempts fail.
func Retry[T any](maxTries int, fn func() (T, error)) (T, error) {
	return RetryWithContext(context.Background(), maxTries, func(context.Context) (T, error) {
		return fn()
	})
}

// RetryErrWithContext is RetryWithContext for functions without a result.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error, opts ...RetryOption) error {
	_, err := RetryWithContext(ctx, maxTries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// RetryWithContext calls fn up to maxTries times until it returns a nil error,
// or until ctx is done. If maxTries <= 0, it defaults to 1.
// Returns ctx.Err() if the context is canceled, otherwise returns the last error.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error), opts ...RetryOption) (T, error) {
	cfg := retryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if maxTries <= 0 {
		maxTries = 1
	}

	var lastErr error
	var zero T
	wait := cfg.backoff
	for i := 0; i < maxTries; i++ {
		if i > 0 && wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			wait *= 2
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
		if cfg.retryIf != nil && !cfg.retryIf(err) {
			break
		}
	}
	return zero, lastErr
}
