package domain

import "errors"

// Domain errors represent error conditions of the bridge.
// They are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running bridge.
	ErrAlreadyRunning = errors.New("hubterm: already running")

	// ErrNotRunning is returned when Stop() or Send() is called on a stopped bridge.
	ErrNotRunning = errors.New("hubterm: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("hubterm: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("hubterm: invalid configuration")

	// ErrTransportClosed is returned when the transport stops delivering events.
	ErrTransportClosed = errors.New("hubterm: transport closed")

	// ErrWriteFailed marks a chunk whose write completed with a failure.
	ErrWriteFailed = errors.New("hubterm: write failed")

	// ErrAckTimeout marks a chunk whose completion never arrived.
	ErrAckTimeout = errors.New("hubterm: write acknowledgment timeout")

	// ErrDetached is returned by a presentation when the user detached from it.
	ErrDetached = errors.New("hubterm: detached")
)
