package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Transport       string `toml:"transport"`
	Adapter         string `toml:"adapter"`
	Device          string `toml:"device"`
	RXChar          string `toml:"rx_char"`
	TXChar          string `toml:"tx_char"`
	SerialPort      string `toml:"serial_port"`
	BaudRate        int    `toml:"baud_rate"`
	ConnectAttempts int    `toml:"connect_attempts"`
	ChunkSize       int    `toml:"chunk_size"`
	BatchIdle       string `toml:"batch_idle"`
	EchoTimeout     string `toml:"echo_timeout"`
	AckTimeout      string `toml:"ack_timeout"`
	WriteFailure    string `toml:"write_failure"`
	LocalEcho       *bool  `toml:"local_echo"`
	Console         *bool  `toml:"console"`
	WebsocketAddr   string `toml:"websocket_addr"`
	StatusDir       string `toml:"status_dir"`
	StatusURL       string `toml:"status_url"`
	LogLevel        string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.hubterm/config.toml if the user home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".hubterm", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("adapter", fc.Adapter, &cfg.Adapter)
	s.setString("device", fc.Device, &cfg.Device)
	s.setString("rx-char", fc.RXChar, &cfg.RXChar)
	s.setString("tx-char", fc.TXChar, &cfg.TXChar)
	s.setString("serial-port", fc.SerialPort, &cfg.SerialPort)
	s.setString("write-failure", fc.WriteFailure, &cfg.WriteFailure)
	s.setString("websocket-addr", fc.WebsocketAddr, &cfg.WebsocketAddr)
	s.setString("status-dir", fc.StatusDir, &cfg.StatusDir)
	s.setString("status-url", fc.StatusURL, &cfg.StatusURL)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("baud", fc.BaudRate, &cfg.BaudRate)
	s.setInt("connect-attempts", fc.ConnectAttempts, &cfg.ConnectAttempts)
	s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)

	if err := s.setDuration("batch-idle", fc.BatchIdle, &cfg.BatchIdle); err != nil {
		return err
	}
	if err := s.setDuration("echo-timeout", fc.EchoTimeout, &cfg.EchoTimeout); err != nil {
		return err
	}
	if err := s.setDuration("ack-timeout", fc.AckTimeout, &cfg.AckTimeout); err != nil {
		return err
	}

	s.setBool("local-echo", fc.LocalEcho, &cfg.LocalEcho)
	s.setBool("console", fc.Console, &cfg.Console)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
