// ABOUTME: Authentication context for tracking identity through message handlers
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
	"slices"

	"github.com/2389/mediator-admin/internal/store"
)

// AuthContext holds the authenticated identity behind a transport connection.
// This is populated by the stream interceptor and read back by the RoleAuthorizer.
type AuthContext struct {
	PrincipalID string   // JWT subject, or "anonymous" when auth is disabled
	Roles       []string // roles assigned to this principal
}

// IsAdmin returns true if the principal has admin or owner role.
func (a *AuthContext) IsAdmin() bool {
	if a == nil {
		return false
	}
	return slices.ContainsFunc(a.Roles, func(r string) bool {
		return store.RoleName(r).IsAdmin()
	})
}

// authContextKey is the key type for storing AuthContext in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}

// anonymousAdmin is injected when authentication is disabled.
func anonymousAdmin() *AuthContext {
	return &AuthContext{
		PrincipalID: "anonymous",
		Roles:       []string{string(store.RoleAdmin)},
	}
}
