// Package console attaches the local terminal to the bridge.
package console

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

// EscapeByte (Ctrl-]) detaches the console.
const EscapeByte = 0x1d

const outputBuffer = 256

// Console forwards keystrokes to a Sender and prints the terminal output
// stream. When the input is a terminal it is switched to raw mode, so
// Ctrl-C reaches the hub as 0x03 instead of interrupting this process.
type Console struct {
	in     io.Reader
	out    io.Writer
	sender ports.Sender
	logger ports.Logger

	mu     sync.Mutex
	source ports.DataSource
	ready  chan struct{}
}

// New creates a console reading in and writing out.
func New(in io.Reader, out io.Writer, sender ports.Sender, logger ports.Logger) *Console {
	return &Console{
		in:     in,
		out:    out,
		sender: sender,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// NewStdio creates a console on the process's standard streams.
func NewStdio(sender ports.Sender, logger ports.Logger) *Console {
	return New(os.Stdin, os.Stdout, sender, logger)
}

// SetDataSource implements ports.Presentation. Only the first source is used.
func (c *Console) SetDataSource(src ports.DataSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source != nil {
		return
	}
	c.source = src
	close(c.ready)
}

// Run attaches the console until ctx is done, the input ends or the user
// presses Ctrl-]. Detaching returns domain.ErrDetached.
func (c *Console) Run(ctx context.Context) error {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, state)
		c.logger.Info("console attached, press Ctrl-] to detach")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ready:
	}

	c.mu.Lock()
	src := c.source
	c.mu.Unlock()

	output, unsubscribe := src.Subscribe(outputBuffer)
	defer unsubscribe()

	inputDone := make(chan error, 1)
	go func() { inputDone <- c.readInput(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-inputDone:
			return err
		case text, ok := <-output:
			if !ok {
				return nil
			}
			if _, err := io.WriteString(c.out, text); err != nil {
				return err
			}
		}
	}
}

func (c *Console) readInput(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		n, err := c.in.Read(buf)
		if n > 0 {
			data := buf[:n]
			i := bytes.IndexByte(data, EscapeByte)
			if i >= 0 {
				data = data[:i]
			}
			if len(data) > 0 {
				if sendErr := c.sender.Send(ctx, string(data)); sendErr != nil {
					c.logger.Warn("console input dropped", ports.Err(sendErr))
				}
			}
			if i >= 0 {
				return domain.ErrDetached
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

var _ ports.Presentation = (*Console)(nil)
