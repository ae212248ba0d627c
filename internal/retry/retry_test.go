package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notcrow/TransacoesFinanceiras/internal/retry"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		func(_ context.Context) error {
			calls++
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond},
		func(_ context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}

			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustionWrapsLastError(t *testing.T) {
	lastErr := errors.New("broker unavailable")
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		func(_ context.Context) error {
			calls++
			return lastErr
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := retry.Do(ctx, retry.Policy{MaxAttempts: 10, BaseDelay: time.Hour},
		func(_ context.Context) error {
			calls++
			cancel()
			return errors.New("transient")
		})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDelayDoublesPerAttempt(t *testing.T) {
	policy := retry.Policy{MaxAttempts: 5, BaseDelay: 250 * time.Millisecond}

	assert.Equal(t, time.Duration(0), policy.Delay(1))
	assert.Equal(t, 250*time.Millisecond, policy.Delay(2))
	assert.Equal(t, 500*time.Millisecond, policy.Delay(3))
	assert.Equal(t, 1000*time.Millisecond, policy.Delay(4))
}
