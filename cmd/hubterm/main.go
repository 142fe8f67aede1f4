package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/hubterm/internal/adapters/bluez"
	"github.com/bft-labs/hubterm/internal/adapters/console"
	"github.com/bft-labs/hubterm/internal/adapters/fs"
	logAdapter "github.com/bft-labs/hubterm/internal/adapters/log"
	"github.com/bft-labs/hubterm/internal/adapters/serial"
	"github.com/bft-labs/hubterm/internal/adapters/websocket"
	"github.com/bft-labs/hubterm/internal/app"
	"github.com/bft-labs/hubterm/internal/cliconfig"
	"github.com/bft-labs/hubterm/internal/ports"
	"github.com/bft-labs/hubterm/pkg/hubterm"
	"github.com/bft-labs/hubterm/plugins/configwatcher"
)

const helpDescription = `
Attach a terminal to a programmable hub over its Bluetooth LE UART, or over
a serial cable.

Highlights:
  - Paces input in small acknowledged chunks so the hub never drops bytes.
  - Tracks the hub's program state (Idle, Running, Error) from its output.
  - Share the session in a browser or script with the websocket endpoint.
  - Configure via file, env, or flags.

Press Ctrl-] to detach from the console.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  hubterm --device 90:84:2B:01:02:03
  hubterm --transport serial --serial-port /dev/ttyACM0
  hubterm --device 90:84:2B:01:02:03 --console=false --websocket-addr :8080
  hubterm status
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:           "hubterm",
		Short:         "Terminal for programmable hubs over Bluetooth LE or serial",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := loadConfig(cmd, &cfg, cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if _, err := logAdapter.SetGlobalLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Info().Interface("config", cfg).Msg("configuration")

			return run(cfg, cfgFile, logAdapter.NewZerologAdapterWithLogger(log))
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the last known hub runtime status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return printStatus(cmd.Context(), cfg.StatusDir, asJSON)
		},
	}
	status.Flags().Bool("json", false, "print the raw status record")
	root.AddCommand(status)

	// Flags
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.hubterm/config.toml)")
	root.PersistentFlags().StringVar(&cfg.StatusDir, "status-dir", cfg.StatusDir, "directory for status.json (empty disables it)")

	root.Flags().StringVar(&cfg.Transport, "transport", cfg.Transport, "transport to the hub: bluez or serial")
	root.Flags().StringVar(&cfg.Adapter, "adapter", cfg.Adapter, "local Bluetooth adapter")
	root.Flags().StringVar(&cfg.Device, "device", cfg.Device, "hub Bluetooth address")
	root.Flags().StringVar(&cfg.RXChar, "rx-char", cfg.RXChar, "UART RX characteristic UUID (written by hubterm)")
	root.Flags().StringVar(&cfg.TXChar, "tx-char", cfg.TXChar, "UART TX characteristic UUID (notified by the hub)")
	for _, name := range []string{"rx-char", "tx-char"} {
		if err := root.Flags().MarkHidden(name); err != nil {
			log.Info().Err(err).Str("flag", name).Msg("failed to hide flag")
		}
	}
	root.Flags().StringVar(&cfg.SerialPort, "serial-port", cfg.SerialPort, "serial device for the serial transport")
	root.Flags().IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "serial baud rate")
	root.Flags().IntVar(&cfg.ConnectAttempts, "connect-attempts", cfg.ConnectAttempts, "connection attempts before giving up")

	root.Flags().IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "largest single write in bytes")
	root.Flags().DurationVar(&cfg.BatchIdle, "batch-idle", cfg.BatchIdle, "input idle time that ends a batch")
	root.Flags().DurationVar(&cfg.EchoTimeout, "echo-timeout", cfg.EchoTimeout, "longest wait for an echo after each chunk")
	root.Flags().DurationVar(&cfg.AckTimeout, "ack-timeout", cfg.AckTimeout, "longest wait for a write acknowledgment (0 waits forever)")
	root.Flags().StringVar(&cfg.WriteFailure, "write-failure", cfg.WriteFailure, "on a failed write: proceed or abort the batch")
	root.Flags().BoolVar(&cfg.LocalEcho, "local-echo", cfg.LocalEcho, "also show typed input locally")

	root.Flags().BoolVar(&cfg.Console, "console", cfg.Console, "attach the terminal to stdin/stdout")
	root.Flags().StringVar(&cfg.WebsocketAddr, "websocket-addr", cfg.WebsocketAddr, "serve the terminal over a websocket at this address")
	root.Flags().StringVar(&cfg.StatusURL, "status-url", cfg.StatusURL, "POST every runtime status change to this URL")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("hubterm")
		os.Exit(1)
	}
}

// loadConfig applies the config file, then HUBTERM_* variables, to cfg.
// Flags set on the command line win over both. It returns the config file
// that was read, if any.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else {
		cfgFile = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	return cfgFile, nil
}

// run connects to the hub and serves the configured presentations until a
// signal arrives, the user detaches or the transport goes away.
func run(cfg cliconfig.Config, cfgFile string, logger *logAdapter.ZerologAdapter) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, closeTransport, err := openTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTransport()

	// Presentations need the bridge to send input, and the bridge needs the
	// presentations. send breaks the cycle.
	var bridge *hubterm.Bridge
	send := senderFunc(func(ctx context.Context, text string) error {
		return bridge.Send(ctx, text)
	})

	opts := []hubterm.Option{
		hubterm.WithLogger(logger),
		configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
	}

	var cons *console.Console
	if cfg.Console {
		cons = console.NewStdio(send, logger)
		opts = append(opts, hubterm.WithPresentation(cons))
	}
	var ws *websocket.Server
	if cfg.WebsocketAddr != "" {
		ws = websocket.New(cfg.WebsocketAddr, send, logger)
		opts = append(opts, hubterm.WithPresentation(ws))
	}

	bridge, err = hubterm.New(hubterm.Config{
		ChunkSize:    cfg.ChunkSize,
		BatchIdle:    cfg.BatchIdle,
		EchoTimeout:  cfg.EchoTimeout,
		AckTimeout:   cfg.AckTimeout,
		WriteFailure: cfg.WriteFailure,
		LocalEcho:    cfg.LocalEcho,
		StatusDir:    cfg.StatusDir,
		StatusURL:    cfg.StatusURL,
		ConfigPath:   cfgFile,
	}, transport, opts...)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cons != nil {
		g.Go(func() error {
			err := cons.Run(gctx)
			if err == nil {
				// End of input detaches like Ctrl-] does.
				err = hubterm.ErrDetached
			}
			return err
		})
	}
	if ws != nil {
		g.Go(func() error { return ws.Run(gctx) })
	}
	done := bridge.Done()
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-done:
			return bridge.Err()
		}
	})

	err = g.Wait()
	switch {
	case errors.Is(err, hubterm.ErrDetached):
		logger.Info("detached")
	case errors.Is(err, context.Canceled):
		logger.Info("received signal, stopping...")
	case err != nil:
		logger.Error("session ended", ports.Err(err))
	}

	if stopErr := bridge.Stop(); stopErr != nil && !errors.Is(stopErr, hubterm.ErrNotRunning) {
		return fmt.Errorf("stop bridge: %w", stopErr)
	}
	if errors.Is(err, hubterm.ErrDetached) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openTransport connects the configured transport, retrying with backoff,
// and returns a function that releases it.
func openTransport(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (hubterm.Transport, func(), error) {
	var (
		transport hubterm.Transport
		closeFn   func()
	)
	attempt := 0
	err := app.Retry(ctx, cfg.ConnectAttempts, app.NewBackoff(app.DefaultRetryInitial, app.DefaultRetryMax), func(ctx context.Context) error {
		attempt++
		t, c, err := dialTransport(ctx, cfg, logger)
		if err != nil {
			logger.Warn("connect failed",
				ports.String("transport", cfg.Transport),
				ports.Int("attempt", attempt),
				ports.Err(err))
			return err
		}
		transport, closeFn = t, c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return transport, closeFn, nil
}

func dialTransport(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (hubterm.Transport, func(), error) {
	switch cfg.Transport {
	case cliconfig.TransportSerial:
		t, err := serial.Open(serial.Config{
			Port:     cfg.SerialPort,
			BaudRate: uint(cfg.BaudRate),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open serial transport: %w", err)
		}
		return t, func() { _ = t.Close() }, nil
	default:
		t, err := bluez.Dial(ctx, bluez.Config{
			Adapter: cfg.Adapter,
			Device:  cfg.Device,
			RXChar:  cfg.RXChar,
			TXChar:  cfg.TXChar,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to %s: %w", cfg.Device, err)
		}
		return t, func() { _ = t.Close() }, nil
	}
}

func printStatus(ctx context.Context, dir string, asJSON bool) error {
	if dir == "" {
		return fmt.Errorf("%w: status-dir is not set", hubterm.ErrInvalidConfig)
	}
	rec, err := fs.NewStatusFile(dir).Load(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	if rec.UpdatedAt.IsZero() {
		fmt.Println("no status recorded yet")
		return nil
	}
	fmt.Printf("state:    %s\n", rec.State)
	if rec.Status != "" {
		fmt.Printf("status:   %s\n", rec.Status)
	}
	if rec.Checksum != nil {
		fmt.Printf("checksum: 0x%02x\n", *rec.Checksum)
	}
	fmt.Printf("updated:  %s\n", rec.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

type senderFunc func(ctx context.Context, text string) error

func (f senderFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }
