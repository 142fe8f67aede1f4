package app

import (
	"github.com/bft-labs/hubterm/internal/checksum"
	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/framing"
	"github.com/bft-labs/hubterm/internal/ports"
)

// Dispatcher routes inbound notifications to the checksum path, the status
// sink or the terminal output. It never blocks and must be driven by a
// single goroutine, one notification at a time.
type Dispatcher struct {
	runtime    ports.RuntimeStateReader
	sink       ports.StatusSink
	classifier *framing.Classifier
	decoder    *framing.Decoder
	display    func(string)
	logger     ports.Logger
}

// NewDispatcher creates a dispatcher. display receives terminal payload.
func NewDispatcher(runtime ports.RuntimeStateReader, sink ports.StatusSink, classifier *framing.Classifier, display func(string), logger ports.Logger) *Dispatcher {
	if classifier == nil {
		classifier = framing.NewClassifier()
	}
	return &Dispatcher{
		runtime:    runtime,
		sink:       sink,
		classifier: classifier,
		decoder:    framing.NewDecoder(),
		display:    display,
		logger:     logger,
	}
}

// Dispatch handles one notification. Status updates reach the sink before
// Dispatch returns, so the runtime state seen by the next call already
// reflects them.
func (d *Dispatcher) Dispatch(n domain.Notification) {
	if value, ok := checksum.Extract(d.runtime.RuntimeState(), n.Value); ok {
		d.logger.Debug("checksum received", ports.Uint8("checksum", value))
		d.sink.Checksum(value)
		return
	}

	text := d.decoder.Decode(n.Value)
	if text == "" {
		return
	}

	segments, _ := d.classifier.Classify(text)
	for _, seg := range segments {
		switch seg.Kind {
		case framing.SegmentStatus:
			d.logger.Debug("runtime status marker", ports.String("status", seg.Status.String()))
			d.sink.UpdateStatus(seg.Status)
		case framing.SegmentPayload:
			d.display(seg.Text)
		}
	}
}
