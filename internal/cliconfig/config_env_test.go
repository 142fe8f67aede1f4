package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		changed map[string]bool
		initial Config
		check   func(t *testing.T, cfg Config)
		wantErr bool
	}{
		{
			name: "applies valid env vars",
			envVars: map[string]string{
				"HUBTERM_TRANSPORT":     "serial",
				"HUBTERM_SERIAL_PORT":   "/dev/ttyACM0",
				"HUBTERM_BAUD_RATE":     "57600",
				"HUBTERM_CHUNK_SIZE":    "32",
				"HUBTERM_ECHO_TIMEOUT":  "50ms",
				"HUBTERM_ACK_TIMEOUT":   "3s",
				"HUBTERM_LOCAL_ECHO":    "1",
				"HUBTERM_CONSOLE":       "false",
				"HUBTERM_WRITE_FAILURE": "abort",
				"HUBTERM_LOG_LEVEL":     "error",

				"HUBTERM_CONNECT_ATTEMPTS": "2",
			},
			changed: map[string]bool{},
			initial: Config{Console: true},
			check: func(t *testing.T, cfg Config) {
				if cfg.Transport != "serial" || cfg.SerialPort != "/dev/ttyACM0" || cfg.BaudRate != 57600 {
					t.Errorf("serial settings = %q %q %d", cfg.Transport, cfg.SerialPort, cfg.BaudRate)
				}
				if cfg.ChunkSize != 32 || cfg.EchoTimeout != 50*time.Millisecond || cfg.AckTimeout != 3*time.Second {
					t.Errorf("flow control = %d %v %v", cfg.ChunkSize, cfg.EchoTimeout, cfg.AckTimeout)
				}
				if !cfg.LocalEcho || cfg.Console {
					t.Errorf("LocalEcho = %v, Console = %v", cfg.LocalEcho, cfg.Console)
				}
				if cfg.ConnectAttempts != 2 {
					t.Errorf("ConnectAttempts = %d, want 2", cfg.ConnectAttempts)
				}
				if cfg.WriteFailure != "abort" || cfg.LogLevel != "error" {
					t.Errorf("WriteFailure = %q, LogLevel = %q", cfg.WriteFailure, cfg.LogLevel)
				}
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"HUBTERM_DEVICE":  "AA:BB:CC:DD:EE:FF",
				"HUBTERM_ADAPTER": "hci1",
			},
			changed: map[string]bool{"device": true},
			initial: Config{Device: "11:22:33:44:55:66", Adapter: "hci0"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Device != "11:22:33:44:55:66" {
					t.Errorf("Device = %q, flag value overwritten", cfg.Device)
				}
				if cfg.Adapter != "hci1" {
					t.Errorf("Adapter = %q, want hci1", cfg.Adapter)
				}
			},
		},
		{
			name:    "invalid duration",
			envVars: map[string]string{"HUBTERM_BATCH_IDLE": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid int",
			envVars: map[string]string{"HUBTERM_CHUNK_SIZE": "many"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
