package uploader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/yourorg/studio-media/internal/provider"
)

// ErrSuperseded is returned when a retry sequence is abandoned because a
// newer selection replaced the one being uploaded. The stale result is
// discarded rather than raced against the new selection.
var ErrSuperseded = errors.New("upload superseded by a newer selection")

// DefaultMaxAttempts bounds how many times a single file is tried
const DefaultMaxAttempts = 3

// DefaultRetryInterval is the base unit of the linear wait schedule:
// attempt n is followed by a wait of n times this interval
const DefaultRetryInterval = 2 * time.Second

// linearBackOff produces the 2s, 4s, 6s schedule. It satisfies
// backoff.BackOff so non-retryable failures can flow through
// backoff.Permanent.
type linearBackOff struct {
	interval time.Duration
	max      int
	attempt  int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.attempt > b.max {
		return backoff.Stop
	}
	return time.Duration(b.attempt) * b.interval
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Retrier applies the bounded linear retry schedule to upload calls.
// Each Do call keeps its own attempt counter, so concurrent per-file
// uploads retry independently; the generation counter is shared and a
// bump abandons every in-flight retry sequence of the old selection.
type Retrier struct {
	maxAttempts int
	interval    time.Duration

	mu         sync.Mutex
	generation int
}

// NewRetrier creates a retrier with the given bounds. Zero values fall
// back to the defaults.
func NewRetrier(maxAttempts int, interval time.Duration) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return &Retrier{maxAttempts: maxAttempts, interval: interval}
}

// Bump invalidates all in-flight retry sequences. Called whenever a new
// valid selection replaces the current one.
func (r *Retrier) Bump() {
	r.mu.Lock()
	r.generation++
	r.mu.Unlock()
}

func (r *Retrier) currentGeneration() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Do runs op up to the attempt bound. After every failed attempt,
// including the last, it waits attempt times the interval, so the
// terminal error only surfaces once the full 2s+4s+6s schedule has
// elapsed. The attempt counter starts fresh on every call and a manual
// retry after exhaustion is not penalized.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	gen := r.currentGeneration()
	policy := &linearBackOff{interval: r.interval, max: r.maxAttempts}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		if !retryable(err) {
			return err
		}
		lastErr = err

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", provider.ErrAborted, ctx.Err())
		}

		if r.currentGeneration() != gen {
			return ErrSuperseded
		}
	}

	return lastErr
}

// retryable reports whether another attempt could plausibly succeed
func retryable(err error) bool {
	switch {
	case errors.Is(err, provider.ErrPayloadTooLarge):
		return false
	case errors.Is(err, provider.ErrBadSignature):
		return false
	case errors.Is(err, provider.ErrAborted):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
