// Package auth decides who may use the admin-mediator protocol.
//
// # Authentication
//
// Transport connections authenticate with an HS256 JWT sent as
// "authorization: Bearer <token>" gRPC metadata. StreamInterceptor verifies
// the token, loads the subject's roles from the role store, and attaches an
// AuthContext to the stream context. With auth disabled,
// NoAuthStreamInterceptor attaches an anonymous admin context instead.
//
// # Authorization
//
// Gate wraps a protocol.Handler so it only runs for admin connections:
//
//	gate := auth.NewGate(auth.NewRoleAuthorizer(store), logger)
//	h := gate.Wrap(inner)
//
// A denied request returns an error wrapping protocol.ErrUnauthorized and the
// inner handler is never called. RoleAuthorizer treats a connection as admin
// when its AuthContext carries the admin or owner role, or when the role store
// grants one of those roles to the connection's principal or to the
// connection ID itself.
package auth
