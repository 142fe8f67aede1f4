package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (HUBTERM_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", os.Getenv("HUBTERM_TRANSPORT"), &cfg.Transport)
	s.setString("adapter", os.Getenv("HUBTERM_ADAPTER"), &cfg.Adapter)
	s.setString("device", os.Getenv("HUBTERM_DEVICE"), &cfg.Device)
	s.setString("rx-char", os.Getenv("HUBTERM_RX_CHAR"), &cfg.RXChar)
	s.setString("tx-char", os.Getenv("HUBTERM_TX_CHAR"), &cfg.TXChar)
	s.setString("serial-port", os.Getenv("HUBTERM_SERIAL_PORT"), &cfg.SerialPort)
	s.setString("write-failure", os.Getenv("HUBTERM_WRITE_FAILURE"), &cfg.WriteFailure)
	s.setString("websocket-addr", os.Getenv("HUBTERM_WEBSOCKET_ADDR"), &cfg.WebsocketAddr)
	s.setString("status-dir", os.Getenv("HUBTERM_STATUS_DIR"), &cfg.StatusDir)
	s.setString("status-url", os.Getenv("HUBTERM_STATUS_URL"), &cfg.StatusURL)
	s.setString("log-level", os.Getenv("HUBTERM_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("baud", os.Getenv("HUBTERM_BAUD_RATE"), &cfg.BaudRate); err != nil {
		return err
	}
	if err := s.setIntFromString("connect-attempts", os.Getenv("HUBTERM_CONNECT_ATTEMPTS"), &cfg.ConnectAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("chunk-size", os.Getenv("HUBTERM_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}

	if err := s.setDuration("batch-idle", os.Getenv("HUBTERM_BATCH_IDLE"), &cfg.BatchIdle); err != nil {
		return err
	}
	if err := s.setDuration("echo-timeout", os.Getenv("HUBTERM_ECHO_TIMEOUT"), &cfg.EchoTimeout); err != nil {
		return err
	}
	if err := s.setDuration("ack-timeout", os.Getenv("HUBTERM_ACK_TIMEOUT"), &cfg.AckTimeout); err != nil {
		return err
	}

	s.setBoolFromString("local-echo", os.Getenv("HUBTERM_LOCAL_ECHO"), &cfg.LocalEcho)
	s.setBoolFromString("console", os.Getenv("HUBTERM_CONSOLE"), &cfg.Console)

	return nil
}
