package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/musive/internal/shared"
)

// RetryPolicy bounds retries of rate limited upstream calls.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep waits between attempts. Nil uses a timer that honors ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy makes three attempts, waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// WithRetry calls fn until it succeeds, fails with an error other than [shared.ErrRateLimited],
// or has been attempted MaxAttempts times. The delay starts at BaseDelay and doubles after each attempt.
//
// Exhausting the attempts returns an error wrapping both [shared.ErrUpstream] and the last rate limit error.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := max(policy.MaxAttempts, 1)
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, shared.ErrRateLimited) {
			return zero, err
		}

		lastErr = err
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
		delay *= 2
	}

	return zero, fmt.Errorf("%w: %w after %d attempts", shared.ErrUpstream, lastErr, attempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
