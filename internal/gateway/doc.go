// Package gateway orchestrates the mediator-admin server components.
//
// # Overview
//
// A Gateway owns the record store, the message type registry, the
// AdminTransport gRPC server, and an optional health HTTP server. New opens
// the SQLite store, applies the configured seed, declares the
// admin-mediator protocol through mediator.Setup, and builds the transport.
//
//	gw, err := gateway.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return gw.Run(ctx)
//
// # Wiring
//
// The registry handlers read from the store through routing.Manager and the
// store's query methods. Query handlers are wrapped by an auth.Gate backed
// by auth.RoleAuthorizer, so only principals or connections holding the
// admin or owner role get replies.
//
// # Health Endpoints
//
// When server.http_addr is set:
//
//   - GET /health returns 200 while the process is up
//   - GET /health/ready returns 200 once message types are registered
//
// # Lifecycle
//
// Run blocks until the context is canceled or a server fails. Shutdown
// drains in-flight streams with GracefulStop, falling back to Stop when the
// shutdown context expires, then closes the tsnet node, the store, and the
// replay guard.
package gateway
