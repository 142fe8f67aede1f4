package ports

import (
	"context"

	"github.com/bft-labs/hubterm/internal/domain"
)

// StatusSink receives runtime reporting from the inbound dispatcher.
// Calls are fire-and-forget and must not block on slow consumers.
type StatusSink interface {
	UpdateStatus(status domain.Status)
	Checksum(value uint8)
}

// RuntimeStateReader exposes the hub runtime state.
// The bridge only reads it; the runtime monitor owns it.
type RuntimeStateReader interface {
	RuntimeState() domain.RuntimeState
}

// StatusRecorder persists or forwards runtime monitor snapshots.
type StatusRecorder interface {
	Record(ctx context.Context, rec domain.StatusRecord) error
}

// StatusRepository is a StatusRecorder that can also load the last record.
type StatusRepository interface {
	StatusRecorder

	// Load returns the last saved record.
	// Returns an empty record and nil error if none exists.
	Load(ctx context.Context) (domain.StatusRecord, error)
}
