package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bft-labs/hubterm/internal/adapters/bluez"
	logAdapter "github.com/bft-labs/hubterm/internal/adapters/log"
	"github.com/bft-labs/hubterm/internal/adapters/serial"
	"github.com/bft-labs/hubterm/internal/app"
	"github.com/bft-labs/hubterm/internal/domain"
)

// Transport names.
const (
	TransportBlueZ  = "bluez"
	TransportSerial = "serial"
)

// Config holds CLI configuration for hubterm.
type Config struct {
	Transport string

	Adapter string
	Device  string
	RXChar  string
	TXChar  string

	SerialPort string
	BaudRate   int

	ConnectAttempts int

	ChunkSize    int
	BatchIdle    time.Duration
	EchoTimeout  time.Duration
	AckTimeout   time.Duration
	WriteFailure string

	LocalEcho     bool
	Console       bool
	WebsocketAddr string

	StatusDir string
	StatusURL string

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Transport:       TransportBlueZ,
		Adapter:         bluez.DefaultAdapter,
		RXChar:          bluez.DefaultRXChar,
		TXChar:          bluez.DefaultTXChar,
		BaudRate:        serial.DefaultBaudRate,
		ConnectAttempts: app.DefaultConnectAttempts,
		ChunkSize:       app.DefaultChunkSize,
		BatchIdle:       app.DefaultBatchIdle,
		EchoTimeout:     app.DefaultEchoTimeout,
		WriteFailure:    app.WriteFailureProceed.String(),
		Console:         true,
		StatusDir:       DefaultStatusDir(),
		LogLevel:        "info",
	}
}

// DefaultStatusDir returns ~/.hubterm, or "" when there is no home directory.
func DefaultStatusDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".hubterm")
	}
	return ""
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportBlueZ:
		if c.Device == "" {
			return invalid("device is required for the bluez transport")
		}
	case TransportSerial:
		if c.SerialPort == "" {
			return invalid("serial-port is required for the serial transport")
		}
		if c.BaudRate <= 0 {
			return invalid("baud rate must be positive")
		}
	default:
		return invalid("unknown transport %q (want bluez or serial)", c.Transport)
	}

	if c.ConnectAttempts <= 0 {
		return invalid("connect attempts must be positive")
	}
	if c.ChunkSize <= 0 {
		return invalid("chunk size must be positive")
	}
	if c.BatchIdle <= 0 {
		return invalid("batch idle must be positive")
	}
	if c.EchoTimeout <= 0 {
		return invalid("echo timeout must be positive")
	}
	if c.AckTimeout < 0 {
		return invalid("ack timeout must not be negative")
	}
	if _, err := app.ParseWriteFailurePolicy(c.WriteFailure); err != nil {
		return err
	}
	if _, err := logAdapter.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if !c.Console && c.WebsocketAddr == "" {
		return invalid("nothing to attach: enable the console or set websocket-addr")
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
