// Package dedupe suppresses redelivered messages. A transport asks the Guard
// to Admit each inbound (connection, @id) pair before dispatching it; repeats
// inside the TTL window are dropped.
//
// Entries live in a size-bounded LRU, so memory stays bounded by max size even
// when a client floods unique IDs. Expiry is checked on access, which keeps
// the Guard free of background goroutines.
package dedupe
