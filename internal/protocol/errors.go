// ABOUTME: Error taxonomy for message dispatch outcomes
// ABOUTME: Callers distinguish rejection causes with errors.Is against these sentinels

package protocol

import (
	"errors"

	"github.com/2389/mediator-admin/internal/message"
)

// ErrSchema indicates the inbound envelope or its payload is malformed.
var ErrSchema = message.ErrSchema

// ErrUnroutableType indicates no handler is declared for the inbound message type.
var ErrUnroutableType = errors.New("unroutable message type")

// ErrUnauthorized indicates the authorization gate denied the connection.
var ErrUnauthorized = errors.New("unauthorized")

// ErrDelivery indicates the reply could not be handed to the transport.
var ErrDelivery = errors.New("reply delivery failed")

// ErrHandlerPanic indicates a handler panicked while executing.
var ErrHandlerPanic = errors.New("handler panicked")

// ErrTypeAlreadyDeclared indicates a message type was declared twice.
var ErrTypeAlreadyDeclared = errors.New("message type already declared")

// ErrInvalidDeclaration indicates a declaration is missing its type, payload
// constructor, or handler.
var ErrInvalidDeclaration = errors.New("invalid message declaration")
