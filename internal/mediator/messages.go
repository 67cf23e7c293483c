// ABOUTME: Payload structs and field schemas for every admin-mediator message
// ABOUTME: Payloads are plain data; behaviour lives in handlers.go

package mediator

import (
	"github.com/2389/mediator-admin/internal/message"
	"github.com/2389/mediator-admin/internal/routing"
	"github.com/2389/mediator-admin/internal/store"
)

// MediationRequestsGet asks for mediation records in a state, optionally
// narrowed to one connection.
type MediationRequestsGet struct {
	State        string  `json:"state"`
	ConnectionID *string `json:"connection_id,omitempty"`
}

func (MediationRequestsGet) MessageType() message.Type { return TypeMediationRequestsGet }

// MediationRequests answers MediationRequestsGet.
type MediationRequests struct {
	Requests []*store.MediationRecord `json:"requests"`
}

func (MediationRequests) MessageType() message.Type { return TypeMediationRequests }

// KeylistsGet asks for route records, optionally narrowed to one connection.
type KeylistsGet struct {
	ConnectionID *string `json:"connection_id,omitempty"`
}

func (KeylistsGet) MessageType() message.Type { return TypeKeylistsGet }

// Keylists answers KeylistsGet.
type Keylists struct {
	Keylists []*store.RouteRecord `json:"keylists"`
}

func (Keylists) MessageType() message.Type { return TypeKeylists }

// RoutesListGet asks the routing manager for every route.
type RoutesListGet struct{}

func (RoutesListGet) MessageType() message.Type { return TypeRoutesListGet }

// RoutesList answers RoutesListGet.
type RoutesList struct {
	Results []routing.RouteSummary `json:"results"`
}

func (RoutesList) MessageType() message.Type { return TypeRoutesList }

// MediationGrant notifies that mediation was granted.
type MediationGrant struct {
	ConnectionID *string `json:"connection_id,omitempty"`
}

func (MediationGrant) MessageType() message.Type { return TypeMediationGrant }

// MediationDeny notifies that mediation was denied.
type MediationDeny struct {
	ConnectionID *string `json:"connection_id,omitempty"`
}

func (MediationDeny) MessageType() message.Type { return TypeMediationDeny }

var (
	mediationRequestsGetSchema = message.Schema{
		message.Str("state", true),
		message.Str("connection_id", false),
	}
	mediationRequestsSchema = message.Schema{
		message.List("requests", message.KindObject, false),
	}
	keylistsGetSchema = message.Schema{
		message.Str("connection_id", false),
	}
	keylistsSchema = message.Schema{
		message.List("keylists", message.KindObject, false),
	}
	routesListGetSchema = message.Schema{}
	routesListSchema    = message.Schema{
		message.List("results", message.KindObject, false),
	}
	notificationSchema = message.Schema{
		message.Str("connection_id", false),
	}
)
