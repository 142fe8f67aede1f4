package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/framing"
	"github.com/bft-labs/hubterm/internal/ports"
	"github.com/bft-labs/hubterm/internal/pubsub"
)

// DefaultRequestBuffer is the queue depth for user input and terminal output.
const DefaultRequestBuffer = 256

// OrchestratorConfig contains configuration for the bridge loops.
type OrchestratorConfig struct {
	ChunkSize     int
	BatchIdle     time.Duration
	EchoTimeout   time.Duration
	AckTimeout    time.Duration
	FailurePolicy WriteFailurePolicy

	// LocalEcho also shows user input on the terminal output stream.
	LocalEcho bool

	RequestBuffer int
}

// Orchestrator wires the dispatcher, batcher and transmitter to their event
// sources. Run starts four independent branches sharing one context:
//
//   - startup: creates the output stream and hands it to the presentations
//   - inbound: dispatches every notification in arrival order
//   - outbound: batches user input and transmits it, one batch at a time
//   - display: pushes terminal payload onto the output stream
//
// Waits in the outbound branch never delay inbound dispatch.
type Orchestrator struct {
	config        OrchestratorConfig
	transport     ports.Transport
	runtime       ports.RuntimeStateReader
	sink          ports.StatusSink
	classifier    *framing.Classifier
	presentations []ports.Presentation
	transmitter   *Transmitter
	logger        ports.Logger

	startup       chan struct{}
	startupOnce   sync.Once
	publisherOnce sync.Once
	publisher     *pubsub.Stream[string]
	sourceOnce    sync.Once

	mu  sync.RWMutex
	run *runQueues
}

// runQueues belong to a single Run; a new Run never sees input queued for
// an earlier one.
type runQueues struct {
	done     <-chan struct{}
	requests chan string
	display  chan string
	echo     chan struct{}
}

// NewOrchestrator creates an orchestrator. runtime and sink are usually the
// same runtime monitor.
func NewOrchestrator(
	config OrchestratorConfig,
	transport ports.Transport,
	runtime ports.RuntimeStateReader,
	sink ports.StatusSink,
	logger ports.Logger,
	emitter TransmitEventEmitter,
	presentations ...ports.Presentation,
) *Orchestrator {
	if config.RequestBuffer <= 0 {
		config.RequestBuffer = DefaultRequestBuffer
	}
	transmitter := NewTransmitter(TransmitterConfig{
		ChunkSize:     config.ChunkSize,
		EchoTimeout:   config.EchoTimeout,
		AckTimeout:    config.AckTimeout,
		FailurePolicy: config.FailurePolicy,
	}, transport, logger, emitter)

	return &Orchestrator{
		config:        config,
		transport:     transport,
		runtime:       runtime,
		sink:          sink,
		classifier:    framing.NewClassifier(),
		presentations: presentations,
		transmitter:   transmitter,
		logger:        logger,
		startup:       make(chan struct{}),
	}
}

// Startup signals application startup. Only the first call has an effect.
func (o *Orchestrator) Startup() {
	o.startupOnce.Do(func() { close(o.startup) })
}

// Publisher returns the terminal output stream. It is created once for the
// lifetime of the orchestrator.
func (o *Orchestrator) Publisher() *pubsub.Stream[string] {
	o.publisherOnce.Do(func() {
		o.publisher = pubsub.New[string]()
	})
	return o.publisher
}

// Run executes the bridge until ctx is cancelled or the transport closes.
// Cancellation aborts every pending wait and discards any partial batch.
func (o *Orchestrator) Run(ctx context.Context) error {
	run, err := o.Prepare(ctx)
	if err != nil {
		return err
	}
	return run()
}

// Prepare registers a new run and returns the function that executes it.
// Send is accepted from the moment Prepare returns. The returned function
// must be called exactly once.
func (o *Orchestrator) Prepare(ctx context.Context) (func() error, error) {
	g, ctx := errgroup.WithContext(ctx)

	q := &runQueues{
		done:     ctx.Done(),
		requests: make(chan string, o.config.RequestBuffer),
		display:  make(chan string, o.config.RequestBuffer),
		echo:     make(chan struct{}, 1),
	}

	o.mu.Lock()
	if o.run != nil {
		o.mu.Unlock()
		return nil, domain.ErrAlreadyRunning
	}
	o.run = q
	o.mu.Unlock()

	dispatcher := NewDispatcher(o.runtime, o.sink, o.classifier, func(text string) {
		o.enqueueDisplay(q, text)
	}, o.logger)

	return func() error {
		defer func() {
			o.mu.Lock()
			o.run = nil
			o.mu.Unlock()
		}()

		g.Go(func() error { return o.startupLoop(ctx) })
		g.Go(func() error { return o.inboundLoop(ctx, dispatcher, q.echo) })
		g.Go(func() error { return o.outboundLoop(ctx, q) })
		g.Go(func() error { return o.displayLoop(ctx, q.display) })

		return g.Wait()
	}, nil
}

// Send queues user input for transmission.
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	q := o.current()
	if q == nil {
		return domain.ErrNotRunning
	}

	select {
	case q.requests <- text:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return domain.ErrNotRunning
	}

	if o.config.LocalEcho {
		o.enqueueDisplay(q, text)
	}
	return nil
}

// Display shows text on the terminal output stream.
func (o *Orchestrator) Display(text string) {
	if q := o.current(); q != nil {
		o.enqueueDisplay(q, text)
		return
	}
	o.Publisher().Publish(text)
}

func (o *Orchestrator) current() *runQueues {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.run
}

func (o *Orchestrator) enqueueDisplay(q *runQueues, text string) {
	select {
	case q.display <- text:
	case <-q.done:
	}
}

func (o *Orchestrator) startupLoop(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.startup:
	}

	o.sourceOnce.Do(func() {
		src := o.Publisher()
		for _, p := range o.presentations {
			p.SetDataSource(src)
		}
		o.logger.Debug("terminal data source ready", ports.Int("presentations", len(o.presentations)))
	})
	return nil
}

func (o *Orchestrator) inboundLoop(ctx context.Context, dispatcher *Dispatcher, echo chan<- struct{}) error {
	notifications := o.transport.Notifications()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-notifications:
			if !ok {
				return domain.ErrTransportClosed
			}
			dispatcher.Dispatch(n)

			select {
			case echo <- struct{}{}:
			default:
			}
		}
	}
}

func (o *Orchestrator) outboundLoop(ctx context.Context, q *runQueues) error {
	batcher := NewBatcher(o.config.ChunkSize, o.config.BatchIdle)
	for {
		batch, err := batcher.Collect(ctx, q.requests)
		if err != nil {
			return err
		}

		if err := o.transmitter.Transmit(ctx, batch, q.echo); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrTransportClosed) {
				return err
			}
			o.logger.Warn("batch aborted", ports.Err(err))
		}
	}
}

func (o *Orchestrator) displayLoop(ctx context.Context, display <-chan string) error {
	publisher := o.Publisher()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text := <-display:
			publisher.Publish(text)
		}
	}
}
