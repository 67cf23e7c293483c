// Package mediator implements the admin-mediator protocol: the message types
// an administrator uses to inspect pending mediation requests and the
// keylists a mediator routes for.
//
// Setup declares every type on a protocol.Registry. The query types
// (mediation-requests-get, keylists-get and the deprecated routes-list-get)
// are gated so only admin connections reach the store. Reply and
// notification types are declared with pass-through handlers so they decode
// when a peer sends them back.
package mediator
