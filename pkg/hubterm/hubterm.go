package hubterm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/hubterm/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/hubterm/internal/adapters/http"
	logAdapter "github.com/bft-labs/hubterm/internal/adapters/log"
	"github.com/bft-labs/hubterm/internal/app"
	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

// Bridge is a terminal bridge to a single hub that can be embedded in other
// applications. Use New() to create an instance, then Start() to begin.
type Bridge struct {
	config       Config
	opts         options
	lifecycle    *app.Lifecycle
	monitor      *app.Monitor
	orchestrator *app.Orchestrator
	statusHook   *httpAdapter.StatusHook
	logger       ports.Logger

	plugins       []Plugin
	pluginsActive bool

	mu      sync.RWMutex
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	started bool
}

// New creates a bridge over an already connected transport.
// The instance is created in StateStopped; call Start() to begin.
// Returns an error if configuration is invalid.
func New(cfg Config, transport Transport, opts ...Option) (*Bridge, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errors.Join(domain.ErrInvalidConfig, errors.New("transport is required"))
	}

	o := defaultOptions(cfg.httpClient())
	for _, opt := range opts {
		opt(&o)
	}

	var logger ports.Logger
	if o.logger != nil {
		logger = o.logger
	} else {
		logger = logAdapter.NewNopAdapter()
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	recorders := append([]ports.StatusRecorder(nil), o.recorders...)
	if cfg.StatusDir != "" {
		recorders = append(recorders, fs.NewStatusFile(cfg.StatusDir))
	}
	var hook *httpAdapter.StatusHook
	if cfg.StatusURL != "" {
		hook = httpAdapter.NewStatusHook(o.httpClient, cfg.StatusURL, logger)
		recorders = append(recorders, hook)
	}

	monitor := app.NewMonitor(logger, emitter, recorders...)
	orchestrator := app.NewOrchestrator(cfg.orchestratorConfig(), transport, monitor, monitor, logger, emitter, o.presentations...)

	return &Bridge{
		config:       cfg,
		opts:         o,
		lifecycle:    app.NewLifecycle(logger, emitter),
		monitor:      monitor,
		orchestrator: orchestrator,
		statusHook:   hook,
		logger:       logger,
		plugins:      o.plugins,
	}, nil
}

// Start runs the bridge in the background and returns immediately.
// Returns an error if already running or if a plugin fails to initialize.
// The provided context bounds the lifetime of the run.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	// A crashed bridge may still hold plugins from the previous run.
	b.shutdownPluginsLocked()

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		ConfigPath: b.config.ConfigPath,
		StatusDir:  b.config.StatusDir,
		Logger:     b.logger,
	}
	for i, p := range b.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			b.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			shutdownPlugins(b.plugins[:i], b.logger)
			_ = b.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		b.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}
	b.pluginsActive = true

	if b.statusHook != nil {
		b.statusHook.Start(runCtx)
	}

	run, err := b.orchestrator.Prepare(runCtx)
	if err != nil {
		cancel()
		b.shutdownPluginsLocked()
		_ = b.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}

	done := make(chan struct{})
	b.done = done
	b.runErr = nil

	if err := b.lifecycle.TransitionTo(app.StateRunning, "bridge starting"); err != nil {
		cancel()
		_ = run()
		close(done)
		return err
	}

	if !b.started {
		b.started = true
		b.orchestrator.Startup()
	}

	b.lifecycle.Go(func() {
		defer close(done)

		err := run()
		if err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("bridge error", ports.Err(err))
			b.mu.Lock()
			b.runErr = err
			b.mu.Unlock()
			cancel()
			_ = b.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})

	return nil
}

// Stop shuts the bridge down. Pending input and any unfinished batch are
// discarded. Waits up to 30 seconds before giving up.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (b *Bridge) Stop() error {
	b.mu.Lock()

	if !b.lifecycle.CanStop() {
		if b.lifecycle.State() == app.StateCrashed {
			b.shutdownPluginsLocked()
		}
		b.mu.Unlock()
		return domain.ErrNotRunning
	}

	if err := b.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		b.mu.Unlock()
		return err
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	err := b.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if b.statusHook != nil {
		b.statusHook.Wait()
	}

	b.mu.Lock()
	b.shutdownPluginsLocked()
	b.mu.Unlock()

	if err != nil {
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = b.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Done returns a channel that is closed when the current run ends, either
// through Stop or because the transport went away. It returns nil before
// the first Start.
func (b *Bridge) Done() <-chan struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.done
}

// Err returns the error that ended the last run, or nil.
func (b *Bridge) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.runErr
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (b *Bridge) Status() State {
	return convertState(b.lifecycle.State())
}

// Send queues user input for transmission. Returns ErrNotRunning unless the
// bridge is running.
func (b *Bridge) Send(ctx context.Context, text string) error {
	return b.orchestrator.Send(ctx, text)
}

// Display shows text locally without sending it to the hub.
func (b *Bridge) Display(text string) {
	b.orchestrator.Display(text)
}

// Subscribe attaches a consumer to the output stream. Call the returned
// function to detach.
func (b *Bridge) Subscribe(buffer int) (<-chan string, func()) {
	return b.orchestrator.Publisher().Subscribe(buffer)
}

// Output returns the output stream as a DataSource.
func (b *Bridge) Output() DataSource {
	return b.orchestrator.Publisher()
}

// RuntimeStatus returns the last known hub runtime status.
func (b *Bridge) RuntimeStatus() StatusRecord {
	return b.monitor.Snapshot()
}

// SetRuntimeState overrides the hub runtime state, for example to Loading
// while a program is being downloaded.
func (b *Bridge) SetRuntimeState(state RuntimeState) {
	b.monitor.SetRuntimeState(state)
}

func (b *Bridge) shutdownPluginsLocked() {
	if !b.pluginsActive {
		return
	}
	b.pluginsActive = false
	shutdownPlugins(b.plugins, b.logger)
}

// shutdownPlugins shuts plugins down in reverse order.
func shutdownPlugins(plugins []Plugin, logger ports.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnBatchSent(chunks, bytes int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnBatchSent(BatchSentEvent{
		Chunks:   chunks,
		Bytes:    bytes,
		Duration: duration,
	})
}

func (e *eventEmitterWrapper) OnWriteFailed(requestID string, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnWriteFailed(WriteFailedEvent{
		RequestID: requestID,
		Error:     err,
	})
}

func (e *eventEmitterWrapper) OnRuntimeStatus(rec domain.StatusRecord) {
	if e.handler == nil {
		return
	}
	e.handler.OnRuntimeStatus(rec)
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
