package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

// DefaultEchoTimeout bounds the wait for an echo after each acknowledged chunk.
const DefaultEchoTimeout = 100 * time.Millisecond

// WriteFailurePolicy decides what a failed chunk does to the rest of its batch.
type WriteFailurePolicy int

const (
	// WriteFailureProceed treats a failed write like a successful one: the
	// echo wait still runs and the next chunk follows.
	WriteFailureProceed WriteFailurePolicy = iota

	// WriteFailureAbort drops the remaining chunks of the batch.
	WriteFailureAbort
)

// String returns the configuration name of the policy.
func (p WriteFailurePolicy) String() string {
	if p == WriteFailureAbort {
		return "abort"
	}
	return "proceed"
}

// ParseWriteFailurePolicy parses "proceed" or "abort".
func ParseWriteFailurePolicy(s string) (WriteFailurePolicy, error) {
	switch s {
	case "", "proceed":
		return WriteFailureProceed, nil
	case "abort":
		return WriteFailureAbort, nil
	default:
		return WriteFailureProceed, fmt.Errorf("%w: unknown write failure policy %q", domain.ErrInvalidConfig, s)
	}
}

// TransmitEventEmitter is called when chunks complete.
type TransmitEventEmitter interface {
	OnBatchSent(chunks, bytes int, duration time.Duration)
	OnWriteFailed(requestID string, err error)
}

// TransmitterConfig contains the flow control settings.
type TransmitterConfig struct {
	ChunkSize   int
	EchoTimeout time.Duration

	// AckTimeout of zero waits for the acknowledgment forever.
	AckTimeout time.Duration

	FailurePolicy WriteFailurePolicy
}

// Transmitter writes one batch at a time, chunk by chunk. Every chunk waits
// for its acknowledgment and then for an echo notification or the echo
// timeout before the next chunk is issued.
type Transmitter struct {
	config    TransmitterConfig
	transport ports.Transport
	logger    ports.Logger
	emitter   TransmitEventEmitter
	newID     func() string
}

// NewTransmitter creates a transmitter for the given transport.
func NewTransmitter(config TransmitterConfig, transport ports.Transport, logger ports.Logger, emitter TransmitEventEmitter) *Transmitter {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.EchoTimeout <= 0 {
		config.EchoTimeout = DefaultEchoTimeout
	}
	return &Transmitter{
		config:    config,
		transport: transport,
		logger:    logger,
		emitter:   emitter,
		newID:     uuid.NewString,
	}
}

// Transmit sends the batch. echo receives a signal for every inbound
// notification; only signals that arrive after a chunk's acknowledgment
// count as that chunk's echo.
//
// Transmit returns ctx.Err() when cancelled mid-batch; the rest of the batch
// is dropped. With WriteFailureAbort a failed chunk ends the batch with an
// error wrapping domain.ErrWriteFailed.
func (t *Transmitter) Transmit(ctx context.Context, batch domain.Batch, echo <-chan struct{}) error {
	chunks := batch.Chunks(t.config.ChunkSize)
	if len(chunks) == 0 {
		return nil
	}

	start := time.Now()
	for i, chunk := range chunks {
		req := domain.WriteRequest{ID: t.newID(), Data: chunk}

		ack, err := t.write(ctx, req)
		if err != nil {
			return err
		}

		if ack.Failed() {
			t.logger.Warn("chunk write failed",
				ports.String("id", req.ID),
				ports.Int("chunk", i),
				ports.Int("chunks", len(chunks)),
				ports.Err(ack.Err),
			)
			if t.emitter != nil {
				t.emitter.OnWriteFailed(req.ID, ack.Err)
			}
			if t.config.FailurePolicy == WriteFailureAbort {
				return fmt.Errorf("chunk %d of %d: %w: %v", i+1, len(chunks), domain.ErrWriteFailed, ack.Err)
			}
		}

		if err := t.awaitEcho(ctx, echo); err != nil {
			return err
		}
	}

	duration := time.Since(start)
	t.logger.Debug("sent batch",
		ports.Int("chunks", len(chunks)),
		ports.Int("bytes", batch.Len()),
		ports.Duration("duration", duration),
	)
	if t.emitter != nil {
		t.emitter.OnBatchSent(len(chunks), batch.Len(), duration)
	}
	return nil
}

// write issues the request and blocks until its Ack arrives. A request the
// transport refused to issue, or whose Ack did not arrive within AckTimeout,
// yields a failed Ack.
func (t *Transmitter) write(ctx context.Context, req domain.WriteRequest) (domain.Ack, error) {
	if err := t.transport.Write(ctx, req); err != nil {
		if ctx.Err() != nil {
			return domain.Ack{}, ctx.Err()
		}
		return domain.Ack{ID: req.ID, Err: err}, nil
	}

	var timeout <-chan time.Time
	if t.config.AckTimeout > 0 {
		timer := time.NewTimer(t.config.AckTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	acks := t.transport.Acks()
	for {
		select {
		case <-ctx.Done():
			return domain.Ack{}, ctx.Err()

		case <-timeout:
			return domain.Ack{ID: req.ID, Err: domain.ErrAckTimeout}, nil

		case ack, ok := <-acks:
			if !ok {
				return domain.Ack{}, domain.ErrTransportClosed
			}
			if ack.ID != req.ID {
				// Left over from a request abandoned by an earlier run.
				t.logger.Debug("ignoring stale ack", ports.String("id", ack.ID))
				continue
			}
			return ack, nil
		}
	}
}

// awaitEcho waits for the next notification or the echo timeout.
func (t *Transmitter) awaitEcho(ctx context.Context, echo <-chan struct{}) error {
	// Notifications seen during the ack wait do not count.
	select {
	case <-echo:
	default:
	}

	timer := time.NewTimer(t.config.EchoTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-echo:
	case <-timer.C:
	}
	return nil
}
