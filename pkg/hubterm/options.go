package hubterm

import (
	"net/http"

	logAdapter "github.com/bft-labs/hubterm/internal/adapters/log"
	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Transport and presentation types, re-exported so that embedders can
// implement them without importing internal packages.
type (
	// Transport is the hub's write and notify channel.
	Transport = ports.Transport

	// Presentation displays terminal output.
	Presentation = ports.Presentation

	// DataSource is the terminal output stream.
	DataSource = ports.DataSource

	// StatusRecorder persists or forwards runtime status snapshots.
	StatusRecorder = ports.StatusRecorder

	// StatusRecord is a runtime status snapshot.
	StatusRecord = domain.StatusRecord

	// RuntimeState is the hub runtime state.
	RuntimeState = domain.RuntimeState

	// Notification is one buffer received from the hub.
	Notification = domain.Notification

	// WriteRequest is one chunk written to the hub.
	WriteRequest = domain.WriteRequest

	// Ack completes one WriteRequest.
	Ack = domain.Ack
)

// Hub runtime states.
const (
	RuntimeUnknown = domain.RuntimeUnknown
	RuntimeIdle    = domain.RuntimeIdle
	RuntimeLoading = domain.RuntimeLoading
	RuntimeRunning = domain.RuntimeRunning
	RuntimeError   = domain.RuntimeError
)

// Errors returned by the bridge. Check them with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrTransportClosed = domain.ErrTransportClosed
	ErrWriteFailed     = domain.ErrWriteFailed
	ErrAckTimeout      = domain.ErrAckTimeout
	ErrDetached        = domain.ErrDetached
)

// Option configures optional behavior of a Bridge.
type Option func(*options)

// options holds the optional configuration for a Bridge.
type options struct {
	httpClient    ports.HTTPClient
	logger        ports.Logger
	eventHandler  EventHandler
	presentations []ports.Presentation
	recorders     []ports.StatusRecorder
	plugins       []Plugin
}

// defaultOptions returns options with sensible defaults.
func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
		logger:     logAdapter.NewNopAdapter(),
	}
}

// WithHTTPClient sets the HTTP client used for status posts.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for bridge events.
// Events are called synchronously from the bridge goroutines.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPresentation registers a view. Each view receives the output stream
// exactly once, when the bridge first starts.
func WithPresentation(p Presentation) Option {
	return func(o *options) {
		o.presentations = append(o.presentations, p)
	}
}

// WithStatusRecorder adds a recorder that sees every runtime status change.
func WithStatusRecorder(r StatusRecorder) Option {
	return func(o *options) {
		o.recorders = append(o.recorders, r)
	}
}

// WithPlugin registers a plugin to be initialized when the bridge starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
