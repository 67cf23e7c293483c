// ABOUTME: Authorization gate that wraps message handlers with an admin check
// ABOUTME: Denied requests never reach the wrapped handler

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/mediator-admin/internal/message"
	"github.com/2389/mediator-admin/internal/protocol"
)

// Gate restricts handlers to admin connections.
type Gate struct {
	authorizer Authorizer
	logger     *slog.Logger
}

// NewGate creates a Gate backed by the given Authorizer.
func NewGate(authorizer Authorizer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		authorizer: authorizer,
		logger:     logger.With("component", "auth-gate"),
	}
}

// Wrap returns a handler that runs inner only when the connection is an
// admin connection. Otherwise it returns an error wrapping
// protocol.ErrUnauthorized. An authorizer error counts as a denial.
func (g *Gate) Wrap(inner protocol.Handler) protocol.Handler {
	return protocol.HandlerFunc(func(ctx context.Context, rc protocol.RequestContext, msg *message.Message) (message.Payload, error) {
		ok, err := g.authorizer.IsAdminConnection(ctx, rc)
		if err != nil {
			g.logger.Warn("authorizer failed, denying",
				"connection_id", rc.ConnectionID,
				"type", msg.Type,
				"error", err,
			)
			return nil, fmt.Errorf("%w: %v", protocol.ErrUnauthorized, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: connection %s is not an admin connection", protocol.ErrUnauthorized, rc.ConnectionID)
		}
		return inner.Handle(ctx, rc, msg)
	})
}
