// Package store persists the records the admin-mediator protocol reports on.
//
// # Interfaces
//
//   - RecordStore: filtered, read-only queries over mediation and route records
//   - RecordWriter: record writes, used by config seeding and tests
//   - RoleStore: role assignments consulted by admin authorization
//   - Store: all of the above plus Close
//
// SQLiteStore implements Store on modernc.org/sqlite. MockStore is an
// in-memory implementation that also counts record queries.
//
// # Filters
//
// A Filter maps record field names to required values. BuildFilter keeps
// only fields that are present and non-empty, so an empty Filter matches
// every record. Each record kind whitelists the fields it can be filtered
// by; anything else fails with ErrUnknownFilterField.
//
// Query results come back in insertion order.
//
// # SQLite Configuration
//
// File databases run in WAL mode. ":memory:" pins the pool to a single
// connection so every query sees the same database. Schema creation and
// additive migrations run on open and are idempotent.
package store
