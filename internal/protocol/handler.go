// ABOUTME: Handler contract shared by every message type and the responder used for replies
// ABOUTME: RequestContext identifies the logical connection a message arrived on

package protocol

import (
	"context"

	"github.com/2389/mediator-admin/internal/message"
)

// RequestContext describes where an inbound message came from.
type RequestContext struct {
	ConnectionID string // logical channel the message arrived on; replies go back here
	PrincipalID  string // authenticated principal behind the connection, empty if anonymous
}

// Handler processes one inbound message. A non-nil payload is sent back as a
// reply threaded onto the inbound message; a nil payload sends nothing.
type Handler interface {
	Handle(ctx context.Context, rc RequestContext, msg *message.Message) (message.Payload, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, rc RequestContext, msg *message.Message) (message.Payload, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, rc RequestContext, msg *message.Message) (message.Payload, error) {
	return f(ctx, rc, msg)
}

// PassThrough accepts a message without doing anything. Used for outbound-only
// notification types that still need to decode when echoed back.
var PassThrough Handler = HandlerFunc(func(context.Context, RequestContext, *message.Message) (message.Payload, error) {
	return nil, nil
})

// Responder delivers outbound messages to a connection.
type Responder interface {
	Send(ctx context.Context, rc RequestContext, msg *message.Message) error
}
