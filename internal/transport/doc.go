// Package transport carries admin-mediator messages over a gRPC
// bidirectional stream.
//
// The service is mediator.AdminTransport with a single Connect stream. Each
// frame is a google.protobuf.BytesValue holding one JSON envelope, so no
// generated code is needed beyond the hand-written ServiceDesc.
//
// A client names its connection with the x-connection-id metadata key and
// authenticates with "authorization: Bearer <jwt>". The server scopes the
// name under the token's principal, so the connection ID seen by handlers
// and role grants is "<principal>/<name>". The Server dispatches
// every inbound envelope on its own goroutine and writes replies back to the
// originating stream. Rejected and failed envelopes get no reply.
package transport
