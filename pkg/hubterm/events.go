package hubterm

import "time"

// State is the lifecycle state of a Bridge.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BatchSentEvent is emitted after a batch has been written.
type BatchSentEvent struct {
	Chunks   int
	Bytes    int
	Duration time.Duration
}

// WriteFailedEvent is emitted for each chunk that failed to write.
type WriteFailedEvent struct {
	RequestID string
	Error     error
}

// EventHandler receives bridge events. Embed BaseEventHandler to implement
// only the methods you need.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnBatchSent(event BatchSentEvent)
	OnWriteFailed(event WriteFailedEvent)
	OnRuntimeStatus(rec StatusRecord)
}

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnBatchSent(BatchSentEvent)     {}
func (BaseEventHandler) OnWriteFailed(WriteFailedEvent) {}
func (BaseEventHandler) OnRuntimeStatus(StatusRecord)   {}
