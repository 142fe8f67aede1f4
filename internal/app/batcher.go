package app

import (
	"context"
	"strings"
	"time"

	"github.com/bft-labs/hubterm/internal/domain"
)

// Default batching configuration values.
const (
	DefaultChunkSize = 20
	DefaultBatchIdle = 20 * time.Millisecond
)

// Batcher accumulates user input so the radio is not written one keystroke
// at a time.
type Batcher struct {
	pending   strings.Builder
	threshold int
	idle      time.Duration
}

// NewBatcher creates a batcher that flushes once threshold bytes are pending
// or no input arrived for idle.
func NewBatcher(threshold int, idle time.Duration) *Batcher {
	if threshold <= 0 {
		threshold = DefaultChunkSize
	}
	if idle <= 0 {
		idle = DefaultBatchIdle
	}
	return &Batcher{
		threshold: threshold,
		idle:      idle,
	}
}

// Add appends text to the pending batch.
// Returns true if the batch should be sent after this add (size trigger).
func (b *Batcher) Add(text string) bool {
	b.pending.WriteString(text)
	return b.Full()
}

// Full returns true once the pending batch reached the threshold.
func (b *Batcher) Full() bool {
	return b.pending.Len() >= b.threshold
}

// HasPending returns true if input is waiting to be sent.
func (b *Batcher) HasPending() bool {
	return b.pending.Len() > 0
}

// Take returns the pending batch and resets the batcher.
func (b *Batcher) Take() domain.Batch {
	batch := domain.Batch{Text: b.pending.String()}
	b.Reset()
	return batch
}

// Reset discards pending input.
func (b *Batcher) Reset() {
	b.pending.Reset()
}

// Collect blocks for the first request, then keeps accepting requests until
// the size threshold is reached or idle elapses without a new one. On
// cancellation the partial batch is discarded and ctx.Err() is returned.
// A closed input channel flushes what is pending.
func (b *Batcher) Collect(ctx context.Context, requests <-chan string) (domain.Batch, error) {
	b.Reset()

	select {
	case <-ctx.Done():
		return domain.Batch{}, ctx.Err()
	case text, ok := <-requests:
		if !ok {
			return domain.Batch{}, domain.ErrNotRunning
		}
		if b.Add(text) {
			return b.Take(), nil
		}
	}

	timer := time.NewTimer(b.idle)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			b.Reset()
			return domain.Batch{}, ctx.Err()

		case <-timer.C:
			return b.Take(), nil

		case text, ok := <-requests:
			if !ok {
				return b.Take(), nil
			}
			if b.Add(text) {
				return b.Take(), nil
			}
			// Idle is measured from the latest request.
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(b.idle)
		}
	}
}
