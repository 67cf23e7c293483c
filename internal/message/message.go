// ABOUTME: Message type identifiers and the Message envelope with @id and ~thread metadata
// ABOUTME: Replies are built from the inbound message so the thread reference is always set

package message

import (
	"github.com/google/uuid"
)

// Type is a globally unique message type identifier, typically a URI of the
// form <protocol>/<version>/<operation>.
type Type string

// String returns the type identifier.
func (t Type) String() string {
	return string(t)
}

// Thread is the ~thread decorator linking a message to the one it answers.
type Thread struct {
	ThreadID string `json:"thid"`
}

// Payload is the typed body of a message. Each payload struct reports the
// message type it is sent as.
type Payload interface {
	MessageType() Type
}

// Message is a single protocol message: a typed payload plus its identifier
// and optional correlation reference.
type Message struct {
	Type    Type
	ID      string
	Thread  *Thread
	Payload Payload
}

// New creates an outbound message for the payload with a fresh identifier.
func New(p Payload) *Message {
	return &Message{
		Type:    p.MessageType(),
		ID:      uuid.New().String(),
		Payload: p,
	}
}

// NewReply creates a message answering the inbound message. The reply is
// always threaded onto the inbound message's own ID.
func NewReply(inbound *Message, p Payload) *Message {
	m := New(p)
	m.Thread = &Thread{ThreadID: inbound.ID}
	return m
}

// IsReplyTo reports whether m is threaded onto the given message ID.
func (m *Message) IsReplyTo(id string) bool {
	return m.Thread != nil && m.Thread.ThreadID == id
}
