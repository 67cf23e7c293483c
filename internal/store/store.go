// ABOUTME: Store interfaces and record types for mediator-admin persistence
// ABOUTME: Defines MediationRecord, RouteRecord, and the RecordStore query interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateRecipientKey is returned when a recipient key is already routed
var ErrDuplicateRecipientKey = errors.New("recipient key already registered")

// MediationState is the state of a mediation relationship
type MediationState string

const (
	MediationStateRequestReceived MediationState = "request_received"
	MediationStateGranted         MediationState = "granted"
	MediationStateDenied          MediationState = "denied"
)

// MediationRole is which side of the mediation relationship this agent is on
type MediationRole string

const (
	MediationRoleServer MediationRole = "server" // we mediate for the connection
	MediationRoleClient MediationRole = "client" // the connection mediates for us
)

// MediationRecord is one connection's mediation relationship with this mediator
type MediationRecord struct {
	MediationID  string         `json:"mediation_id"`
	ConnectionID string         `json:"connection_id"`
	State        MediationState `json:"state"`
	Role         MediationRole  `json:"role"`
	RoutingKeys  []string       `json:"routing_keys"`
	Endpoint     string         `json:"endpoint,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// RouteRecord is one recipient key registered for routing on behalf of a connection
type RouteRecord struct {
	RecordID     string    `json:"record_id"`
	ConnectionID string    `json:"connection_id"`
	RecipientKey string    `json:"recipient_key"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RecordStore answers filtered queries over mediation and route records.
// Results come back in store order; an empty filter matches every record.
type RecordStore interface {
	QueryMediationRecords(ctx context.Context, filter Filter) ([]*MediationRecord, error)
	QueryRouteRecords(ctx context.Context, filter Filter) ([]*RouteRecord, error)
}

// RecordWriter persists records. The mediation and routing subsystems own
// these writes; mediator-admin only uses them for seeding and tests.
type RecordWriter interface {
	SaveMediationRecord(ctx context.Context, rec *MediationRecord) error
	SaveRouteRecord(ctx context.Context, rec *RouteRecord) error
}

// RoleStore manages role assignments used for admin authorization
type RoleStore interface {
	AddRole(ctx context.Context, subjectType RoleSubjectType, subjectID string, role RoleName) error
	RemoveRole(ctx context.Context, subjectType RoleSubjectType, subjectID string, role RoleName) error
	HasRole(ctx context.Context, subjectType RoleSubjectType, subjectID string, role RoleName) (bool, error)
	ListRoles(ctx context.Context, subjectType RoleSubjectType, subjectID string) ([]RoleName, error)
}

// Store is the full persistence surface
type Store interface {
	RecordStore
	RecordWriter
	RoleStore

	// Close releases any resources held by the store
	Close() error
}
