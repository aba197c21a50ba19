package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/targodan/UberSpatchBoard/errors"
	"github.com/targodan/UberSpatchBoard/marshal"
	"github.com/targodan/UberSpatchBoard/message"
	"github.com/targodan/UberSpatchBoard/pkg/retry"
)

// NATSDeps holds runtime dependencies for a NATSSource.
type NATSDeps struct {
	// URL of the NATS server, e.g. nats.DefaultURL.
	URL string
	// Subject carrying raw IRC lines, one line per message payload.
	Subject string
	// Channel overrides the channel the marshaller extracted, when set.
	Channel    string
	Marshaller marshal.Marshaller
	Logger     *slog.Logger
}

// NATSSource subscribes to a NATS subject whose payloads are raw IRC
// log lines, as published by an IRC bouncer bridge. Each payload runs
// through the marshaller like a line read from a local file would.
type NATSSource struct {
	url        string
	subject    string
	channel    string
	marshaller marshal.Marshaller
	logger     *slog.Logger

	retryConfig retry.Config

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Source = (*NATSSource)(nil)

// NewNATSSource creates a NATS source.
func NewNATSSource(deps NATSDeps) *NATSSource {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "nats-source", "subject", deps.Subject)
	}

	return &NATSSource{
		url:         deps.URL,
		subject:     deps.Subject,
		channel:     deps.Channel,
		marshaller:  deps.Marshaller,
		logger:      logger,
		retryConfig: retry.DefaultConfig(),
		stop:        make(chan struct{}),
	}
}

// Listen connects, subscribes and pumps payloads until Stop. The
// initial connect is retried with backoff; once established, the NATS
// client reconnects on its own.
func (n *NATSSource) Listen(queue chan<- *message.Message) error {
	if n.marshaller == nil {
		return errors.WrapInvalid(errors.ErrNoMarshaller,
			"NATSSource", "Listen", "marshaller validation")
	}
	if n.subject == "" {
		return errors.WrapInvalid(fmt.Errorf("empty subject"),
			"NATSSource", "Listen", "subject validation")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-n.stop
		cancel()
	}()

	var conn *nats.Conn
	err := retry.Do(ctx, n.retryConfig, func() error {
		var connErr error
		conn, connErr = nats.Connect(n.url,
			nats.Name("uberspatchboard"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
		)
		return connErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.WrapTransient(err, "NATSSource", "Listen", "connect to NATS")
	}
	defer conn.Close()

	inbox := make(chan *nats.Msg, 64)
	sub, err := conn.ChanSubscribe(n.subject, inbox)
	if err != nil {
		return errors.WrapTransient(err, "NATSSource", "Listen", "subscribe")
	}
	defer func() { _ = sub.Unsubscribe() }()

	n.logger.Info("Subscribed.", "url", conn.ConnectedUrl(), "subject", n.subject)

	return n.pump(inbox, queue)
}

// pump drains the subscription inbox into the queue until Stop. Each
// payload is one raw IRC line.
func (n *NATSSource) pump(inbox <-chan *nats.Msg, queue chan<- *message.Message) error {
	for {
		select {
		case <-n.stop:
			return nil
		case natsMsg := <-inbox:
			if !n.push(string(natsMsg.Data), queue) {
				return nil
			}
		}
	}
}

// push marshals one raw payload and offers it to the queue. Returns
// false when Stop interrupted the offer.
func (n *NATSSource) push(line string, queue chan<- *message.Message) bool {
	msg, err := n.marshaller.Marshal(line)
	if err != nil {
		n.logger.Debug("Dropping unmarshallable payload.", "line", line, "error", err)
		return true
	}
	if msg == nil {
		return true
	}

	if n.channel != "" {
		msg.Channel = n.channel
	}

	select {
	case queue <- msg:
		return true
	case <-n.stop:
		return false
	}
}

// Stop asks Listen to return. Idempotent.
func (n *NATSSource) Stop() {
	n.stopOnce.Do(func() { close(n.stop) })
}

// Name returns a human-readable description of this source.
func (n *NATSSource) Name() string {
	return fmt.Sprintf("NATS: %s %s", n.url, n.subject)
}

// ShortName returns the source type tag.
func (n *NATSSource) ShortName() string {
	return "nats"
}
