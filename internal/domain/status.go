package domain

import "time"

// Status is a runtime transition announced in-band by the hub.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusError
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// RuntimeState is the hub runtime as tracked by the runtime monitor.
type RuntimeState int

const (
	RuntimeUnknown RuntimeState = iota
	RuntimeIdle
	RuntimeLoading
	RuntimeRunning
	RuntimeError
)

// String returns a human-readable representation of the runtime state.
func (s RuntimeState) String() string {
	switch s {
	case RuntimeIdle:
		return "Idle"
	case RuntimeLoading:
		return "Loading"
	case RuntimeRunning:
		return "Running"
	case RuntimeError:
		return "Error"
	default:
		return "Unknown"
	}
}

// RuntimeStateFor maps an in-band status to the runtime state it implies.
func RuntimeStateFor(s Status) RuntimeState {
	switch s {
	case StatusIdle:
		return RuntimeIdle
	case StatusRunning:
		return RuntimeRunning
	case StatusError:
		return RuntimeError
	default:
		return RuntimeUnknown
	}
}

// ParseRuntimeState is the inverse of RuntimeState.String.
func ParseRuntimeState(s string) RuntimeState {
	switch s {
	case "Idle":
		return RuntimeIdle
	case "Loading":
		return RuntimeLoading
	case "Running":
		return RuntimeRunning
	case "Error":
		return RuntimeError
	default:
		return RuntimeUnknown
	}
}

// StatusRecord is a snapshot of the runtime monitor, persisted for the
// status command and forwarded to webhooks.
type StatusRecord struct {
	State     string    `json:"state"`
	Status    string    `json:"status,omitempty"`
	Checksum  *uint8    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
