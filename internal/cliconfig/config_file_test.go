package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		check      func(t *testing.T, cfg Config)
		wantErr    bool
	}{
		{
			name: "applies all values",
			fileConfig: FileConfig{
				Transport:       "serial",
				SerialPort:      "/dev/ttyUSB0",
				BaudRate:        9600,
				ConnectAttempts: 9,
				ChunkSize:       64,
				BatchIdle:       "5ms",
				EchoTimeout:     "250ms",
				AckTimeout:      "2s",
				WriteFailure:    "abort",
				LocalEcho:       &trueVal,
				Console:         &falseVal,
				WebsocketAddr:   ":9000",
				StatusURL:       "http://example.com/hook",
				LogLevel:        "debug",
			},
			changed: map[string]bool{},
			initial: DefaultConfig(),
			check: func(t *testing.T, cfg Config) {
				if cfg.Transport != "serial" || cfg.SerialPort != "/dev/ttyUSB0" || cfg.BaudRate != 9600 {
					t.Errorf("serial settings = %q %q %d", cfg.Transport, cfg.SerialPort, cfg.BaudRate)
				}
				if cfg.ConnectAttempts != 9 {
					t.Errorf("ConnectAttempts = %d, want 9", cfg.ConnectAttempts)
				}
				if cfg.ChunkSize != 64 {
					t.Errorf("ChunkSize = %d, want 64", cfg.ChunkSize)
				}
				if cfg.BatchIdle != 5*time.Millisecond || cfg.EchoTimeout != 250*time.Millisecond || cfg.AckTimeout != 2*time.Second {
					t.Errorf("durations = %v %v %v", cfg.BatchIdle, cfg.EchoTimeout, cfg.AckTimeout)
				}
				if cfg.WriteFailure != "abort" || !cfg.LocalEcho || cfg.Console {
					t.Errorf("policy/echo/console = %q %v %v", cfg.WriteFailure, cfg.LocalEcho, cfg.Console)
				}
				if cfg.WebsocketAddr != ":9000" || cfg.StatusURL != "http://example.com/hook" || cfg.LogLevel != "debug" {
					t.Errorf("outputs = %q %q %q", cfg.WebsocketAddr, cfg.StatusURL, cfg.LogLevel)
				}
			},
		},
		{
			name:       "respects changed flags",
			fileConfig: FileConfig{Device: "AA:BB:CC:DD:EE:FF", ChunkSize: 64},
			changed:    map[string]bool{"device": true},
			initial:    Config{Device: "11:22:33:44:55:66", ChunkSize: 20},
			check: func(t *testing.T, cfg Config) {
				if cfg.Device != "11:22:33:44:55:66" {
					t.Errorf("Device = %q, flag value overwritten", cfg.Device)
				}
				if cfg.ChunkSize != 64 {
					t.Errorf("ChunkSize = %d, want 64", cfg.ChunkSize)
				}
			},
		},
		{
			name:       "empty file keeps defaults",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			check: func(t *testing.T, cfg Config) {
				if cfg != DefaultConfig() {
					t.Errorf("config changed: %+v", cfg)
				}
			},
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{EchoTimeout: "a while"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.TrimSpace(`
transport = "bluez"
device = "90:84:2B:01:02:03"
chunk_size = 20
batch_idle = "20ms"
ack_timeout = "1s"
local_echo = true
log_level = "warn"
`)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if fc.Device != "90:84:2B:01:02:03" || fc.ChunkSize != 20 || fc.BatchIdle != "20ms" || fc.AckTimeout != "1s" {
		t.Errorf("LoadFileConfig() = %+v", fc)
	}
	if fc.LocalEcho == nil || !*fc.LocalEcho {
		t.Error("local_echo not parsed")
	}
	if fc.Console != nil {
		t.Error("console set although absent from file")
	}
	if fc.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", fc.LogLevel)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing file: want error")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("chunk_size = \"twenty\""), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(bad); err == nil {
		t.Error("type mismatch: want error")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if FileExists(path) {
		t.Error("FileExists() = true before creation")
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false after creation")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/hub")
	if got := DefaultConfigPath(); got != filepath.Join("/home/hub", ".hubterm", "config.toml") {
		t.Errorf("DefaultConfigPath() = %q", got)
	}
}
