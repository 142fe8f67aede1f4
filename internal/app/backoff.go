package app

import (
	"context"
	"math/rand"
	"time"
)

// Connect retry defaults.
const (
	DefaultConnectAttempts = 5
	DefaultRetryInitial    = 500 * time.Millisecond
	DefaultRetryMax        = 8 * time.Second
)

// Backoff implements exponential backoff with jitter.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff creates a new backoff with the given initial and max durations.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Wait sleeps for the current backoff duration and increases it.
// Returns ctx.Err() if ctx is done first.
func (b *Backoff) Wait(ctx context.Context) error {
	// Add jitter: ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	timer := time.NewTimer(time.Duration(float64(b.current) + jitter))
	defer timer.Stop()

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset resets the backoff to the initial duration.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Retry calls fn up to attempts times, waiting on b between failures.
// It returns the last error when every attempt failed.
func Retry(ctx context.Context, attempts int, b *Backoff, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if waitErr := b.Wait(ctx); waitErr != nil {
				return waitErr
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
