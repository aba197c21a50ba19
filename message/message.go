// Package message defines the immutable IRC message record that flows
// from the sources through the ingestion queue into the parser.
package message

import "time"

// EventSender is the sender of channel events such as joins and quits,
// as opposed to messages written by a user.
const EventSender = "*"

// Message is one line of IRC chat. Messages are immutable; equality is
// structural.
type Message struct {
	Timestamp time.Time
	// Sender is EventSender for channel events like "someone joined".
	Sender  string
	Channel string
	Content string
}

// New creates a Message.
func New(timestamp time.Time, sender, channel, content string) *Message {
	return &Message{
		Timestamp: timestamp,
		Sender:    sender,
		Channel:   channel,
		Content:   content,
	}
}

// IsEvent reports whether the message is a channel event rather than a
// chat line written by a user.
func (m *Message) IsEvent() bool {
	return m.Sender == EventSender
}

// Equal reports whether two messages carry the same data.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Timestamp.Equal(other.Timestamp) &&
		m.Sender == other.Sender &&
		m.Channel == other.Channel &&
		m.Content == other.Content
}
