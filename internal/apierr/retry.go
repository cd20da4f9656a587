package apierr

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds the retry loop for one API call. MaxRetries counts
// retries, not attempts: zero means a single attempt. Non-positive delays
// are treated as 1ms / BaseDelay so a zero-value config still terminates.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// delay returns the wait before retry n (1-based): BaseDelay doubled per
// retry, capped at MaxDelay.
func (c RetryConfig) delay(n int) time.Duration {
	base := c.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	limit := c.MaxDelay
	if limit <= 0 {
		limit = base
	}

	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		d = limit
	}
	return d
}

// RetryWithBackoff runs fn until it succeeds, shouldRetry rejects the error,
// the retry budget is spent, or ctx is cancelled during a backoff wait.
// Errors that shouldRetry rejects are returned as-is from the failing
// attempt: the probe sampler depends on ErrAudioTooShort surfacing
// immediately so it can grow the sample window instead of resending the
// same clip.
func RetryWithBackoff[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	var zero T

	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !shouldRetry(err) {
			return zero, err
		}
		lastErr = err
		if attempt == retries {
			break
		}

		timer := time.NewTimer(cfg.delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("max retries (%d) exceeded: %w", retries, lastErr)
}
