// Package serial implements the UART transport over a wired serial port.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"

	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

// DefaultBaudRate matches the hub's USB and UART console.
const DefaultBaudRate = 115200

const readSize = 256

// Config selects the serial device.
type Config struct {
	Port     string
	BaudRate uint
}

// Transport implements ports.Transport on an io.ReadWriteCloser. A write
// is acknowledged once the port accepted all bytes; every read becomes one
// notification.
type Transport struct {
	port   io.ReadWriteCloser
	logger ports.Logger

	writeMu sync.Mutex

	acks          chan domain.Ack
	notifications chan domain.Notification

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open opens the serial device and starts reading from it.
func Open(cfg Config, logger ports.Logger) (*Transport, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("%w: serial port is required", domain.ErrInvalidConfig)
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        cfg.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	logger.Info("serial transport ready",
		ports.String("port", cfg.Port),
		ports.Int("baud", int(cfg.BaudRate)))
	return New(port, logger), nil
}

// New wraps an already open port.
func New(port io.ReadWriteCloser, logger ports.Logger) *Transport {
	t := &Transport{
		port:          port,
		logger:        logger,
		acks:          make(chan domain.Ack, 1),
		notifications: make(chan domain.Notification, 64),
		done:          make(chan struct{}),
	}
	t.wg.Add(1)
	go t.readLoop()
	return t
}

// Write implements ports.Transport.
func (t *Transport) Write(ctx context.Context, req domain.WriteRequest) error {
	select {
	case <-t.done:
		return domain.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.writeMu.Lock()
	_, err := t.port.Write(req.Data)
	t.writeMu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		select {
		case t.acks <- domain.Ack{ID: req.ID, Err: err}:
		case <-t.done:
		}
	}()
	return nil
}

// Acks implements ports.Transport.
func (t *Transport) Acks() <-chan domain.Ack { return t.acks }

// Notifications implements ports.Transport. The channel is closed when the
// port reports an error or Close is called.
func (t *Transport) Notifications() <-chan domain.Notification { return t.notifications }

func (t *Transport) readLoop() {
	defer t.wg.Done()
	defer close(t.notifications)

	buf := make([]byte, readSize)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			select {
			case t.notifications <- domain.Notification{Value: append([]byte(nil), buf[:n]...)}:
			case <-t.done:
				return
			}
		}
		if err != nil {
			select {
			case <-t.done:
			default:
				if !errors.Is(err, io.EOF) {
					t.logger.Warn("serial read failed", ports.Err(err))
				}
			}
			return
		}
	}
}

// Close closes the port and waits for the reader to exit.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.port.Close()
		t.wg.Wait()
	})
	return err
}

var _ ports.Transport = (*Transport)(nil)
