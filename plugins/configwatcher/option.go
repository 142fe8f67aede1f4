package configwatcher

import "github.com/bft-labs/hubterm/pkg/hubterm"

// WithConfigWatcher returns a hubterm Option that enables config file
// watching. The bridge's Config.ConfigPath selects the file.
//
// Usage:
//
//	b, err := hubterm.New(cfg, transport,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) hubterm.Option {
	return hubterm.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a hubterm Option that enables config
// watching with default settings.
//
// Usage:
//
//	b, err := hubterm.New(cfg, transport, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() hubterm.Option {
	return WithConfigWatcher(DefaultConfig())
}
