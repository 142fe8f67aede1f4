// Package configwatcher provides config file monitoring for hubterm.
// When enabled, it watches the TOML configuration file and re-applies the
// settings that can change without a restart, currently log_level.
package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	logAdapter "github.com/bft-labs/hubterm/internal/adapters/log"
	"github.com/bft-labs/hubterm/internal/ports"
	"github.com/bft-labs/hubterm/pkg/hubterm"
)

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration
	apply         func(Settings) error

	path     string
	logger   hubterm.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	last     Settings
}

// Settings are the reloadable parts of the configuration file.
type Settings struct {
	LogLevel string `toml:"log_level"`
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Apply is called with the reloaded settings whenever they change.
	// Default: sets the global log level.
	Apply func(Settings) error
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		Apply:         applyLogLevel,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.Apply == nil {
		cfg.Apply = applyLogLevel
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		apply:         cfg.Apply,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching cfg.ConfigPath. Without a config path the
// plugin stays idle.
func (p *Plugin) Initialize(ctx context.Context, cfg hubterm.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files on save, so the directory is watched rather
	// than the file itself.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	if s, err := p.load(); err == nil {
		p.last = s
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", ports.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload reads the file and applies settings that differ from the last
// applied ones.
func (p *Plugin) reload() {
	s, err := p.load()
	if err != nil {
		p.logger.Warn("config reload failed", ports.String("path", p.path), ports.Err(err))
		return
	}

	p.mu.Lock()
	changed := s != p.last
	p.mu.Unlock()
	if !changed {
		return
	}

	if err := p.apply(s); err != nil {
		p.logger.Warn("config reload rejected", ports.String("path", p.path), ports.Err(err))
		return
	}

	p.mu.Lock()
	p.last = s
	p.mu.Unlock()
	p.logger.Info("config reloaded", ports.String("log_level", s.LogLevel))
}

func (p *Plugin) load() (Settings, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", p.path, err)
	}
	return s, nil
}

func applyLogLevel(s Settings) error {
	if s.LogLevel == "" {
		return nil
	}
	_, err := logAdapter.SetGlobalLevel(s.LogLevel)
	return err
}

// Ensure Plugin implements hubterm.Plugin.
var _ hubterm.Plugin = (*Plugin)(nil)
