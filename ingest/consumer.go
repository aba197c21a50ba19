package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/targodan/UberSpatchBoard/errors"
	"github.com/targodan/UberSpatchBoard/message"
	"github.com/targodan/UberSpatchBoard/metric"
	"github.com/targodan/UberSpatchBoard/parse"
)

// DefaultQueueCapacity bounds the message queue when no capacity is
// configured. Kept small on purpose: sources block on a full queue,
// which is the backpressure against a slow dispatcher.
const DefaultQueueCapacity = 8

// ConsumerDeps holds runtime dependencies for the Consumer.
type ConsumerDeps struct {
	Parser          *parse.Parser
	QueueCapacity   int
	MetricsRegistry *metric.Registry
	Logger          *slog.Logger
}

// Consumer owns the bounded message queue between sources and parser.
// One goroutine per attached Source produces into the queue; a single
// dispatcher goroutine drains it, so the parser and everything behind
// it run single-writer.
type Consumer struct {
	parser  *parse.Parser
	logger  *slog.Logger
	queue   chan *message.Message
	metrics *Metrics

	mu      sync.Mutex
	sources map[Source]chan struct{}

	running        atomic.Bool
	shutdown       chan struct{}
	dispatcherDone chan struct{}
}

// NewConsumer creates a Consumer.
func NewConsumer(deps ConsumerDeps) *Consumer {
	capacity := deps.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "consumer")
	}

	return &Consumer{
		parser:  deps.Parser,
		logger:  logger,
		queue:   make(chan *message.Message, capacity),
		metrics: newMetrics(deps.MetricsRegistry),
		sources: make(map[Source]chan struct{}),
	}
}

// Initialize validates the consumer's dependencies.
func (c *Consumer) Initialize() error {
	if c.parser == nil {
		return errors.WrapInvalid(fmt.Errorf("nil parser"),
			"Consumer", "Initialize", "parser validation")
	}
	return nil
}

// Start launches the dispatcher goroutine. Idempotent.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return nil
	}

	c.shutdown = make(chan struct{})
	c.dispatcherDone = make(chan struct{})
	c.running.Store(true)

	go c.dispatchLoop(ctx)
	return nil
}

// AddSource attaches a source and starts its reader goroutine. Sources
// may be attached and detached while the consumer is running.
func (c *Consumer) AddSource(src Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted,
			"Consumer", "AddSource", "attach source")
	}
	if _, exists := c.sources[src]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("source %s already attached", src.Name()),
			"Consumer", "AddSource", "duplicate source")
	}

	done := make(chan struct{})
	c.sources[src] = done

	go func() {
		defer close(done)
		if err := src.Listen(c.queue); err != nil {
			c.logger.Error("Source terminated with error.",
				"source", src.Name(), "error", err)
			return
		}
		c.logger.Info("Source stopped.", "source", src.Name())
	}()

	return nil
}

// RemoveSource stops one source and waits for its reader to finish.
// The other sources are not disturbed.
func (c *Consumer) RemoveSource(src Source) error {
	c.mu.Lock()
	done, exists := c.sources[src]
	if exists {
		delete(c.sources, src)
	}
	c.mu.Unlock()

	if !exists {
		return errors.WrapInvalid(
			fmt.Errorf("source %s not attached", src.Name()),
			"Consumer", "RemoveSource", "source lookup")
	}

	src.Stop()
	<-done
	return nil
}

// Inject pushes a synthetic message without going through a Source.
// Non-blocking: a full queue drops the message and returns an error
// rather than stalling the caller.
func (c *Consumer) Inject(msg *message.Message) error {
	if !c.running.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted,
			"Consumer", "Inject", "message injection")
	}

	select {
	case c.queue <- msg:
		return nil
	case <-c.shutdown:
		return errors.WrapInvalid(errors.ErrShuttingDown,
			"Consumer", "Inject", "message injection")
	default:
		c.metrics.observeDropped()
		return errors.WrapTransient(errors.ErrQueueFull,
			"Consumer", "Inject", "message injection")
	}
}

// Stop shuts the pipeline down in two phases: first every source is
// stopped and its reader joined, then the dispatcher is signalled and
// joined. Messages still queued when the dispatcher exits are lost.
func (c *Consumer) Stop(timeout time.Duration) error {
	// CAS so concurrent Stops cannot both pass the guard and
	// double-close the shutdown channel.
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}

	c.mu.Lock()
	workers := make([]chan struct{}, 0, len(c.sources))
	for src, done := range c.sources {
		src.Stop()
		workers = append(workers, done)
	}
	c.sources = make(map[Source]chan struct{})
	c.mu.Unlock()

	deadline := time.After(timeout)
	for _, done := range workers {
		select {
		case <-done:
		case <-deadline:
			return errors.WrapTransient(
				fmt.Errorf("stop timeout after %v", timeout),
				"Consumer", "Stop", "source shutdown")
		}
	}

	close(c.shutdown)
	select {
	case <-c.dispatcherDone:
	case <-deadline:
		return errors.WrapTransient(
			fmt.Errorf("stop timeout after %v", timeout),
			"Consumer", "Stop", "dispatcher shutdown")
	}

	return nil
}

// dispatchLoop drains the queue into the parser, one message at a
// time. This is the only goroutine that mutates the domain model.
func (c *Consumer) dispatchLoop(ctx context.Context) {
	defer close(c.dispatcherDone)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case msg := <-c.queue:
			result := c.parser.ParseAndHandle(msg)
			c.metrics.observeConsumed(result.String(), len(c.queue))
		}
	}
}
