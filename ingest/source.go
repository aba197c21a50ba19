package ingest

import (
	"github.com/targodan/UberSpatchBoard/message"
)

// Source is a long-lived producer of chat messages.
//
// Listen blocks, pushing messages into the queue until Stop is called
// or an unrecoverable error occurs. A Source must tolerate a slow
// consumer: the queue send blocks and doubles as backpressure, so the
// send must be interruptible by Stop.
type Source interface {
	// Listen reads lines, marshals them and pushes the resulting
	// messages into queue. Returns after Stop, or with an error when
	// the underlying medium fails permanently.
	Listen(queue chan<- *message.Message) error
	// Stop asks Listen to return. Idempotent, non-blocking.
	Stop()
	// Name returns a human-readable description of the source.
	Name() string
	// ShortName returns a terse type tag, e.g. "file" or "nats".
	ShortName() string
}
