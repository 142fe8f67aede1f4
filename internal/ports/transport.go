package ports

import (
	"context"

	"github.com/bft-labs/hubterm/internal/domain"
)

// Transport is a UART-like channel that already exists: a write
// characteristic with per-request completion and a notify characteristic.
// Connection establishment is the caller's business.
type Transport interface {
	// Write submits one chunk. It returns once the request is issued;
	// completion is reported later on Acks with the same ID. An error
	// means the request was never issued and no Ack will follow.
	Write(ctx context.Context, req domain.WriteRequest) error

	// Acks delivers exactly one Ack per issued WriteRequest.
	// The channel is never closed; consumers stop on ctx.
	Acks() <-chan domain.Ack

	// Notifications delivers inbound buffers in arrival order.
	// The channel is closed when the transport shuts down.
	Notifications() <-chan domain.Notification
}
