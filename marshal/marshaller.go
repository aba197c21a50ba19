// Package marshal turns raw chat-client log lines into messages.
//
// Each chat client writes its channel log in its own format; a
// Marshaller knows one of these formats. The ingest sources feed every
// appended log line through their marshaller and drop lines that do
// not decode.
package marshal

import "github.com/targodan/UberSpatchBoard/message"

// Marshaller decodes one raw log line into a Message.
//
// A (nil, nil) return means the line is not a chat message (for
// example a blank line or client noise) and should be skipped silently.
// An error means the line looked like a message but could not be
// decoded; callers log and drop the line.
type Marshaller interface {
	Marshal(rawLine string) (*message.Message, error)
}
