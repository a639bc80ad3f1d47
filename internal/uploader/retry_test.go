package uploader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/studio-media/internal/provider"
)

func TestLinearBackOffSchedule(t *testing.T) {
	policy := &linearBackOff{interval: DefaultRetryInterval, max: DefaultMaxAttempts}

	assert.Equal(t, 2*time.Second, policy.NextBackOff())
	assert.Equal(t, 4*time.Second, policy.NextBackOff())
	assert.Equal(t, 6*time.Second, policy.NextBackOff())
	assert.Equal(t, backoff.Stop, policy.NextBackOff())

	policy.Reset()
	assert.Equal(t, 2*time.Second, policy.NextBackOff())
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	r := NewRetrier(3, time.Millisecond)

	attempts := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("connection reset")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRetrierSucceedsAfterFailure(t *testing.T) {
	r := NewRetrier(3, time.Millisecond)

	attempts := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrierFreshAttemptsPerCall(t *testing.T) {
	// Exhaustion must not penalize a later manual retry
	r := NewRetrier(3, time.Millisecond)

	for call := 0; call < 2; call++ {
		attempts := 0
		err := r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("always failing")
		})
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
	}
}

func TestRetrierDoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"payload too large", provider.ErrPayloadTooLarge},
		{"signature rejected", provider.ErrBadSignature},
		{"aborted", provider.ErrAborted},
		{"wrapped permanent", backoff.Permanent(errors.New("no point"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetrier(3, time.Millisecond)

			attempts := 0
			err := r.Do(context.Background(), func(ctx context.Context) error {
				attempts++
				return tt.err
			})

			require.Error(t, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestRetrierAbandonsStaleGeneration(t *testing.T) {
	r := NewRetrier(3, 20*time.Millisecond)

	attempts := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("transient")
		})
	}()

	// Replace the selection while the first attempt is backing off
	time.Sleep(5 * time.Millisecond)
	r.Bump()

	err := <-errCh
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Equal(t, 1, attempts)
}

func TestRetrierStopsOnContextCancel(t *testing.T) {
	r := NewRetrier(3, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Do(ctx, func(ctx context.Context) error {
			attempts++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, provider.ErrAborted)
	assert.Equal(t, 1, attempts)
}
