// ABOUTME: Message type identifiers for the admin-mediator protocol
// ABOUTME: Every type is the protocol URI joined with a message name

package mediator

import "github.com/2389/mediator-admin/internal/message"

// Protocol is the admin-mediator protocol URI.
const Protocol = "https://github.com/hyperledger/aries-toolbox/tree/master/docs/admin-mediator/0.1"

const (
	TypeMediationRequestsGet message.Type = Protocol + "/mediation-requests-get"
	TypeMediationRequests    message.Type = Protocol + "/mediation-requests"
	TypeKeylistsGet          message.Type = Protocol + "/keylists-get"
	TypeKeylists             message.Type = Protocol + "/keylists"
	TypeMediationGrant       message.Type = Protocol + "/mediate-grant"
	TypeMediationDeny        message.Type = Protocol + "/mediate-deny"

	// Deprecated: routes-list predates keylists-get and is kept for older clients.
	TypeRoutesListGet message.Type = Protocol + "/routes-list-get"
	// Deprecated: reply to TypeRoutesListGet.
	TypeRoutesList message.Type = Protocol + "/routes-list"
)
