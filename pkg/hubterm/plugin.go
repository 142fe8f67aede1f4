package hubterm

import "context"

// PluginConfig is passed to plugins when the bridge starts.
type PluginConfig struct {
	// ConfigPath is the configuration file the bridge was loaded from, if any.
	ConfigPath string

	// StatusDir is where the runtime status is kept, if anywhere.
	StatusDir string

	Logger Logger
}

// Plugin extends a Bridge with behavior that lives as long as a run.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called by Start, in registration order. ctx is cancelled
	// when the run ends. An error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called by Stop, in reverse registration order.
	Shutdown(ctx context.Context) error
}
