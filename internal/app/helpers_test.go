package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// fakeTransport records writes and lets the test decide when each one
// completes and when notifications arrive.
type fakeTransport struct {
	mu       sync.Mutex
	writes   []domain.WriteRequest
	writeErr error

	written       chan domain.WriteRequest
	acks          chan domain.Ack
	notifications chan domain.Notification

	// autoAck completes every write immediately with ackErr.
	autoAck bool
	ackErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		written:       make(chan domain.WriteRequest, 64),
		acks:          make(chan domain.Ack, 64),
		notifications: make(chan domain.Notification, 64),
	}
}

func (f *fakeTransport) Write(ctx context.Context, req domain.WriteRequest) error {
	f.mu.Lock()
	if f.writeErr != nil {
		err := f.writeErr
		f.mu.Unlock()
		return err
	}
	f.writes = append(f.writes, req)
	autoAck, ackErr := f.autoAck, f.ackErr
	f.mu.Unlock()

	f.written <- req
	if autoAck {
		f.acks <- domain.Ack{ID: req.ID, Err: ackErr}
	}
	return nil
}

func (f *fakeTransport) Acks() <-chan domain.Ack { return f.acks }

func (f *fakeTransport) Notifications() <-chan domain.Notification { return f.notifications }

func (f *fakeTransport) Writes() []domain.WriteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.WriteRequest{}, f.writes...)
}

func (f *fakeTransport) notify(value string) {
	f.notifications <- domain.Notification{Value: []byte(value)}
}

// nextWrite waits for the next issued write.
func (f *fakeTransport) nextWrite(t *testing.T) domain.WriteRequest {
	t.Helper()
	select {
	case req := <-f.written:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a write")
		return domain.WriteRequest{}
	}
}

// expectNoWrite asserts that nothing is written within d.
func (f *fakeTransport) expectNoWrite(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case req := <-f.written:
		t.Fatalf("unexpected write %q", req.Data)
	case <-time.After(d):
	}
}

// sinkEvent is one call recorded by recordingSink.
type sinkEvent struct {
	kind     string
	text     string
	status   domain.Status
	checksum uint8
}

// recordingSink records status sink calls and displayed payload in order.
// It also serves as the runtime state reader.
type recordingSink struct {
	mu     sync.Mutex
	state  domain.RuntimeState
	events []sinkEvent
}

func (r *recordingSink) RuntimeState() domain.RuntimeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *recordingSink) setState(s domain.RuntimeState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *recordingSink) UpdateStatus(status domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = domain.RuntimeStateFor(status)
	r.events = append(r.events, sinkEvent{kind: "status", status: status})
}

func (r *recordingSink) Checksum(value uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "checksum", checksum: value})
}

func (r *recordingSink) display(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "payload", text: text})
}

func (r *recordingSink) Events() []sinkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sinkEvent(nil), r.events...)
}

// recordingEmitter tracks transmit events.
type recordingEmitter struct {
	mu     sync.Mutex
	sent   []int
	failed []string
}

func (e *recordingEmitter) OnBatchSent(chunks, bytes int, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, chunks)
}

func (e *recordingEmitter) OnWriteFailed(requestID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, requestID)
}

func (e *recordingEmitter) Failed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.failed...)
}

func (e *recordingEmitter) Sent() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int{}, e.sent...)
}
