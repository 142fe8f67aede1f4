package hubterm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bft-labs/hubterm/internal/app"
	"github.com/bft-labs/hubterm/internal/domain"
)

// Config holds the bridge settings. Zero values are replaced by defaults.
type Config struct {
	// ChunkSize is the largest write the transport accepts. Default: 20.
	ChunkSize int

	// BatchIdle ends a batch when no input arrives for this long. Default: 20ms.
	BatchIdle time.Duration

	// EchoTimeout bounds the wait for an echo after each chunk. Default: 100ms.
	EchoTimeout time.Duration

	// AckTimeout bounds the wait for a write acknowledgment. Zero waits forever.
	AckTimeout time.Duration

	// WriteFailure is "proceed" (default) or "abort".
	WriteFailure string

	// LocalEcho also shows user input on the output stream. It is off by
	// default: the hub echoes received input back over the link, and the
	// echo is what gets displayed. Enable it for hubs that do not echo, or
	// when the input should appear before the round trip completes.
	LocalEcho bool

	// StatusDir, when set, keeps status.json with the last runtime status.
	StatusDir string

	// StatusURL, when set, receives every runtime status as a JSON POST.
	StatusURL string

	// HTTPTimeout applies to status posts. Default: 10s.
	HTTPTimeout time.Duration

	// ConfigPath is handed to plugins.
	ConfigPath string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = app.DefaultChunkSize
	}
	if c.BatchIdle <= 0 {
		c.BatchIdle = app.DefaultBatchIdle
	}
	if c.EchoTimeout <= 0 {
		c.EchoTimeout = app.DefaultEchoTimeout
	}
	if c.WriteFailure == "" {
		c.WriteFailure = app.WriteFailureProceed.String()
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.AckTimeout < 0 {
		return fmt.Errorf("%w: ack timeout must not be negative", domain.ErrInvalidConfig)
	}
	if _, err := app.ParseWriteFailurePolicy(c.WriteFailure); err != nil {
		return err
	}
	return nil
}

func (c *Config) orchestratorConfig() app.OrchestratorConfig {
	policy, _ := app.ParseWriteFailurePolicy(c.WriteFailure)
	return app.OrchestratorConfig{
		ChunkSize:     c.ChunkSize,
		BatchIdle:     c.BatchIdle,
		EchoTimeout:   c.EchoTimeout,
		AckTimeout:    c.AckTimeout,
		FailurePolicy: policy,
		LocalEcho:     c.LocalEcho,
	}
}

func (c *Config) httpClient() *http.Client {
	return &http.Client{Timeout: c.HTTPTimeout}
}
