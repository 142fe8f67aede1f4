package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/hubterm/internal/domain"
)

func newTestTransmitter(transport *fakeTransport, config TransmitterConfig, emitter TransmitEventEmitter) *Transmitter {
	return NewTransmitter(config, transport, &mockLogger{}, emitter)
}

func transmitAsync(tx *Transmitter, ctx context.Context, text string, echo <-chan struct{}) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- tx.Transmit(ctx, domain.Batch{Text: text}, echo)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Transmit did not return")
		return nil
	}
}

func TestTransmitter_ChunksAreGatedByAck(t *testing.T) {
	transport := newFakeTransport()
	emitter := &recordingEmitter{}
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 4, EchoTimeout: 10 * time.Millisecond}, emitter)

	done := transmitAsync(tx, context.Background(), "ABCDEFGHIJ", make(chan struct{}, 1))

	seen := map[string]bool{}
	for _, want := range []string{"ABCD", "EFGH", "IJ"} {
		req := transport.nextWrite(t)
		if string(req.Data) != want {
			t.Fatalf("write = %q, want %q", req.Data, want)
		}
		if req.ID == "" || seen[req.ID] {
			t.Fatalf("request id %q is empty or reused", req.ID)
		}
		seen[req.ID] = true

		// Nothing else goes out while the ack is outstanding.
		transport.expectNoWrite(t, 40*time.Millisecond)
		transport.acks <- domain.Ack{ID: req.ID}
	}

	if err := waitDone(t, done); err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}
	if got := len(transport.Writes()); got != 3 {
		t.Errorf("issued %d writes, want 3", got)
	}
	if sent := emitter.Sent(); len(sent) != 1 || sent[0] != 3 {
		t.Errorf("OnBatchSent chunks = %v, want [3]", sent)
	}
}

func TestTransmitter_EchoTimeoutPacesChunks(t *testing.T) {
	transport := newFakeTransport()
	transport.autoAck = true
	echoTimeout := 30 * time.Millisecond
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 2, EchoTimeout: echoTimeout}, nil)

	start := time.Now()
	err := tx.Transmit(context.Background(), domain.Batch{Text: "abcdef"}, make(chan struct{}, 1))
	if err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed < 3*echoTimeout {
		t.Errorf("Transmit took %v, want at least %v (one echo window per chunk)", elapsed, 3*echoTimeout)
	}
}

func TestTransmitter_EchoReleasesNextChunk(t *testing.T) {
	transport := newFakeTransport()
	transport.autoAck = true
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 2, EchoTimeout: time.Hour}, nil)

	echo := make(chan struct{}, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case echo <- struct{}{}:
				default:
				}
			}
		}
	}()

	done := transmitAsync(tx, context.Background(), "abcdef", echo)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}
	if got := len(transport.Writes()); got != 3 {
		t.Errorf("issued %d writes, want 3", got)
	}
}

func TestTransmitter_FailedAckProceeds(t *testing.T) {
	transport := newFakeTransport()
	transport.autoAck = true
	transport.ackErr = errors.New("gatt error")
	emitter := &recordingEmitter{}
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 4, EchoTimeout: time.Millisecond}, emitter)

	err := tx.Transmit(context.Background(), domain.Batch{Text: "ABCDEFGHIJ"}, make(chan struct{}, 1))
	if err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}
	if got := len(transport.Writes()); got != 3 {
		t.Errorf("issued %d writes, want 3", got)
	}
	if got := len(emitter.Failed()); got != 3 {
		t.Errorf("OnWriteFailed called %d times, want 3", got)
	}
}

func TestTransmitter_FailedAckAborts(t *testing.T) {
	transport := newFakeTransport()
	transport.autoAck = true
	transport.ackErr = errors.New("gatt error")
	tx := newTestTransmitter(transport, TransmitterConfig{
		ChunkSize:     4,
		EchoTimeout:   time.Millisecond,
		FailurePolicy: WriteFailureAbort,
	}, nil)

	err := tx.Transmit(context.Background(), domain.Batch{Text: "ABCDEFGHIJ"}, make(chan struct{}, 1))
	if !errors.Is(err, domain.ErrWriteFailed) {
		t.Fatalf("Transmit() error = %v, want ErrWriteFailed", err)
	}
	if got := len(transport.Writes()); got != 1 {
		t.Errorf("issued %d writes, want 1", got)
	}
}

func TestTransmitter_RefusedWriteCountsAsFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.writeErr = errors.New("not connected")
	emitter := &recordingEmitter{}
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 4, EchoTimeout: time.Millisecond}, emitter)

	err := tx.Transmit(context.Background(), domain.Batch{Text: "ABCDEFGHIJ"}, make(chan struct{}, 1))
	if err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}
	if got := len(emitter.Failed()); got != 3 {
		t.Errorf("OnWriteFailed called %d times, want 3", got)
	}
}

func TestTransmitter_AckTimeout(t *testing.T) {
	transport := newFakeTransport()
	emitter := &recordingEmitter{}
	tx := newTestTransmitter(transport, TransmitterConfig{
		ChunkSize:   4,
		EchoTimeout: time.Millisecond,
		AckTimeout:  20 * time.Millisecond,
	}, emitter)

	done := transmitAsync(tx, context.Background(), "ABCDEF", make(chan struct{}, 1))
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}
	if got := len(emitter.Failed()); got != 2 {
		t.Errorf("OnWriteFailed called %d times, want 2", got)
	}
}

func TestTransmitter_IgnoresStaleAcks(t *testing.T) {
	transport := newFakeTransport()
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 8, EchoTimeout: time.Millisecond}, nil)

	transport.acks <- domain.Ack{ID: "left-over"}
	done := transmitAsync(tx, context.Background(), "abc", make(chan struct{}, 1))

	req := transport.nextWrite(t)
	select {
	case err := <-done:
		t.Fatalf("Transmit returned %v on a stale ack", err)
	case <-time.After(30 * time.Millisecond):
	}

	transport.acks <- domain.Ack{ID: req.ID}
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Transmit() error = %v", err)
	}
}

func TestTransmitter_CancelDuringAckWait(t *testing.T) {
	transport := newFakeTransport()
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 4, EchoTimeout: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := transmitAsync(tx, ctx, "ABCDEFGH", make(chan struct{}, 1))

	transport.nextWrite(t)
	cancel()

	if err := waitDone(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("Transmit() error = %v, want context.Canceled", err)
	}
	transport.expectNoWrite(t, 30*time.Millisecond)
}

func TestTransmitter_CancelDuringEchoWait(t *testing.T) {
	transport := newFakeTransport()
	transport.autoAck = true
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 4, EchoTimeout: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := transmitAsync(tx, ctx, "ABCDEFGH", make(chan struct{}, 1))

	transport.nextWrite(t)
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := waitDone(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("Transmit() error = %v, want context.Canceled", err)
	}
	if got := len(transport.Writes()); got != 1 {
		t.Errorf("issued %d writes, want 1", got)
	}
}

func TestTransmitter_ClosedAcks(t *testing.T) {
	transport := newFakeTransport()
	close(transport.acks)
	tx := newTestTransmitter(transport, TransmitterConfig{ChunkSize: 4}, nil)

	err := tx.Transmit(context.Background(), domain.Batch{Text: "abc"}, make(chan struct{}, 1))
	if !errors.Is(err, domain.ErrTransportClosed) {
		t.Errorf("Transmit() error = %v, want ErrTransportClosed", err)
	}
}

func TestParseWriteFailurePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    WriteFailurePolicy
		wantErr bool
	}{
		{"", WriteFailureProceed, false},
		{"proceed", WriteFailureProceed, false},
		{"abort", WriteFailureAbort, false},
		{"retry", WriteFailureProceed, true},
	}
	for _, tt := range tests {
		got, err := ParseWriteFailurePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseWriteFailurePolicy(%q) = (%v, %v)", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("error %v does not wrap ErrInvalidConfig", err)
		}
	}
}
