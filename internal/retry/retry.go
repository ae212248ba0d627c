// Package retry provides a bounded retry helper with exponential backoff,
// shared by every publisher and consumer in the pipeline.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retryable operation: at most MaxAttempts tries, sleeping
// BaseDelay before the second attempt and doubling before each one after.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Delay returns the backoff before the given attempt (attempts count from 1;
// there is no delay before the first).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	return p.BaseDelay << (attempt - 2)
}

// Do runs op until it succeeds, the policy is exhausted, or ctx is cancelled.
// Backoff sleeps respect ctx so shutdown is prompt. On exhaustion the last
// error is returned wrapped with the attempt count.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := sleep(ctx, policy.Delay(attempt)); err != nil {
			return err
		}

		if lastErr = op(ctx); lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", policy.MaxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
