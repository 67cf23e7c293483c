// ABOUTME: Decides whether the connection behind a request holds administrative privilege
// ABOUTME: RoleAuthorizer consults the auth context first, then the role store

package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/2389/mediator-admin/internal/protocol"
	"github.com/2389/mediator-admin/internal/store"
)

// Authorizer reports whether a request comes from an admin connection.
type Authorizer interface {
	IsAdminConnection(ctx context.Context, rc protocol.RequestContext) (bool, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, rc protocol.RequestContext) (bool, error)

// IsAdminConnection calls f.
func (f AuthorizerFunc) IsAdminConnection(ctx context.Context, rc protocol.RequestContext) (bool, error) {
	return f(ctx, rc)
}

// RoleStore is the subset of the store the RoleAuthorizer needs.
type RoleStore interface {
	ListRoles(ctx context.Context, subjectType store.RoleSubjectType, subjectID string) ([]store.RoleName, error)
}

// RoleAuthorizer grants admin to connections whose principal, or the
// connection itself, holds the admin or owner role.
type RoleAuthorizer struct {
	roles RoleStore
}

// NewRoleAuthorizer creates a RoleAuthorizer over the given role store.
func NewRoleAuthorizer(roles RoleStore) *RoleAuthorizer {
	return &RoleAuthorizer{roles: roles}
}

// IsAdminConnection implements Authorizer.
func (a *RoleAuthorizer) IsAdminConnection(ctx context.Context, rc protocol.RequestContext) (bool, error) {
	if FromContext(ctx).IsAdmin() {
		return true, nil
	}

	subjects := []struct {
		kind store.RoleSubjectType
		id   string
	}{
		{store.RoleSubjectPrincipal, rc.PrincipalID},
		{store.RoleSubjectConnection, rc.ConnectionID},
	}
	for _, s := range subjects {
		if s.id == "" {
			continue
		}
		roles, err := a.roles.ListRoles(ctx, s.kind, s.id)
		if err != nil {
			return false, fmt.Errorf("listing roles for %s %s: %w", s.kind, s.id, err)
		}
		if slices.ContainsFunc(roles, store.RoleName.IsAdmin) {
			return true, nil
		}
	}
	return false, nil
}
