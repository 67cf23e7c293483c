// ABOUTME: Query handlers for the admin-mediator protocol
// ABOUTME: Each handler builds a sparse filter, queries the store, and returns the reply payload

package mediator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/mediator-admin/internal/message"
	"github.com/2389/mediator-admin/internal/protocol"
	"github.com/2389/mediator-admin/internal/routing"
	"github.com/2389/mediator-admin/internal/store"
)

// RouteLister lists every route the mediator holds.
type RouteLister interface {
	GetRoutes(ctx context.Context) ([]routing.RouteSummary, error)
}

// handlers carries the collaborators the query handlers read from.
type handlers struct {
	records store.RecordStore
	routes  RouteLister
	logger  *slog.Logger
}

func (h *handlers) mediationRequestsGet(ctx context.Context, rc protocol.RequestContext, msg *message.Message) (message.Payload, error) {
	req, ok := msg.Payload.(*MediationRequestsGet)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T for %s", msg.Payload, msg.Type)
	}

	filter := store.BuildFilter(map[string]*string{
		"state":         &req.State,
		"connection_id": req.ConnectionID,
	})
	records, err := h.records.QueryMediationRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying mediation records: %w", err)
	}

	h.logger.Debug("mediation requests queried", "filter", filter.Keys(), "count", len(records))
	return &MediationRequests{Requests: records}, nil
}

func (h *handlers) keylistsGet(ctx context.Context, rc protocol.RequestContext, msg *message.Message) (message.Payload, error) {
	req, ok := msg.Payload.(*KeylistsGet)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T for %s", msg.Payload, msg.Type)
	}

	filter := store.BuildFilter(map[string]*string{
		"connection_id": req.ConnectionID,
	})
	records, err := h.records.QueryRouteRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying route records: %w", err)
	}

	h.logger.Debug("keylists queried", "filter", filter.Keys(), "count", len(records))
	return &Keylists{Keylists: records}, nil
}

func (h *handlers) routesListGet(ctx context.Context, rc protocol.RequestContext, msg *message.Message) (message.Payload, error) {
	routes, err := h.routes.GetRoutes(ctx)
	if err != nil {
		return nil, err
	}
	return &RoutesList{Results: routes}, nil
}
