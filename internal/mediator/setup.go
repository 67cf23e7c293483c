// ABOUTME: Registers every admin-mediator message type with a protocol registry
// ABOUTME: Query handlers are wrapped in the admin gate; notifications and replies pass through

package mediator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/mediator-admin/internal/message"
	"github.com/2389/mediator-admin/internal/protocol"
	"github.com/2389/mediator-admin/internal/store"
)

// ErrMissingDependency is returned by Setup when a required collaborator is nil.
var ErrMissingDependency = errors.New("missing dependency")

// Gate restricts a handler to admin connections.
type Gate interface {
	Wrap(inner protocol.Handler) protocol.Handler
}

// Deps are the collaborators the admin-mediator handlers need.
type Deps struct {
	Records store.RecordStore
	Routes  RouteLister
	Gate    Gate
	Logger  *slog.Logger
}

// Setup declares the admin-mediator message types on reg. Declaring twice
// on the same registry fails with protocol.ErrTypeAlreadyDeclared.
func Setup(reg *protocol.Registry, deps Deps) error {
	switch {
	case deps.Records == nil:
		return fmt.Errorf("%w: record store", ErrMissingDependency)
	case deps.Routes == nil:
		return fmt.Errorf("%w: routing manager", ErrMissingDependency)
	case deps.Gate == nil:
		return fmt.Errorf("%w: authorization gate", ErrMissingDependency)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{
		records: deps.Records,
		routes:  deps.Routes,
		logger:  logger.With("component", "mediator"),
	}

	decls := []protocol.Declaration{
		{
			Type:    TypeMediationRequestsGet,
			Schema:  mediationRequestsGetSchema,
			New:     func() message.Payload { return &MediationRequestsGet{} },
			Handler: deps.Gate.Wrap(protocol.HandlerFunc(h.mediationRequestsGet)),
		},
		{
			Type:    TypeMediationRequests,
			Schema:  mediationRequestsSchema,
			New:     func() message.Payload { return &MediationRequests{} },
			Handler: protocol.PassThrough,
		},
		{
			Type:    TypeKeylistsGet,
			Schema:  keylistsGetSchema,
			New:     func() message.Payload { return &KeylistsGet{} },
			Handler: deps.Gate.Wrap(protocol.HandlerFunc(h.keylistsGet)),
		},
		{
			Type:    TypeKeylists,
			Schema:  keylistsSchema,
			New:     func() message.Payload { return &Keylists{} },
			Handler: protocol.PassThrough,
		},
		{
			Type:    TypeMediationGrant,
			Schema:  notificationSchema,
			New:     func() message.Payload { return &MediationGrant{} },
			Handler: protocol.PassThrough,
		},
		{
			Type:    TypeMediationDeny,
			Schema:  notificationSchema,
			New:     func() message.Payload { return &MediationDeny{} },
			Handler: protocol.PassThrough,
		},
		{
			Type:    TypeRoutesListGet,
			Schema:  routesListGetSchema,
			New:     func() message.Payload { return &RoutesListGet{} },
			Handler: deps.Gate.Wrap(protocol.HandlerFunc(h.routesListGet)),
		},
		{
			Type:    TypeRoutesList,
			Schema:  routesListSchema,
			New:     func() message.Payload { return &RoutesList{} },
			Handler: protocol.PassThrough,
		},
	}

	for _, d := range decls {
		if err := reg.Declare(d); err != nil {
			return fmt.Errorf("declaring admin-mediator types: %w", err)
		}
	}

	logger.Info("admin-mediator protocol registered", "types", len(decls))
	return nil
}
