package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"

	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

// DefaultQueueSize is the number of records a StatusHook holds while a POST
// is in flight.
const DefaultQueueSize = 16

// ErrQueueFull is returned by Record when the hook is backed up.
var ErrQueueFull = errors.New("status hook queue full")

// StatusHook implements ports.StatusRecorder by posting each record as JSON
// to a URL. Record only queues; Run does the posting.
type StatusHook struct {
	client ports.HTTPClient
	url    string
	logger ports.Logger

	queue chan domain.StatusRecord
	wg    sync.WaitGroup
}

// NewStatusHook creates a hook posting to url.
func NewStatusHook(client ports.HTTPClient, url string, logger ports.Logger) *StatusHook {
	return &StatusHook{
		client: client,
		url:    url,
		logger: logger,
		queue:  make(chan domain.StatusRecord, DefaultQueueSize),
	}
}

// Record queues rec without blocking.
func (h *StatusHook) Record(ctx context.Context, rec domain.StatusRecord) error {
	select {
	case h.queue <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start posts queued records in the background until ctx is done.
func (h *StatusHook) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.Run(ctx)
	}()
}

// Wait blocks until the goroutine started by Start returns.
func (h *StatusHook) Wait() {
	h.wg.Wait()
}

// Run posts queued records until ctx is done. Failures are logged and the
// record is dropped.
func (h *StatusHook) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-h.queue:
			if err := h.Post(ctx, rec); err != nil && ctx.Err() == nil {
				h.logger.Warn("status hook failed",
					ports.String("url", h.url),
					ports.String("state", rec.State),
					ports.Err(err))
			}
		}
	}
}

// Post sends rec immediately.
func (h *StatusHook) Post(ctx context.Context, rec domain.StatusRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hubterm-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
