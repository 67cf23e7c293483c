// ABOUTME: A connected admin client and the table of live connections
// ABOUTME: Sends on a connection are serialized because gRPC streams allow one sender at a time

package transport

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrConnectionAlreadyRegistered indicates a connection with the same ID is already open.
var ErrConnectionAlreadyRegistered = errors.New("connection already registered")

// ErrConnectionNotFound indicates the specified connection is not open.
var ErrConnectionNotFound = errors.New("connection not found")

// frameSender is the part of a stream a Connection writes to.
type frameSender interface {
	Send(*wrapperspb.BytesValue) error
}

// Connection is one open Connect stream.
type Connection struct {
	ID          string
	PrincipalID string
	ConnectedAt time.Time

	stream frameSender
	sendMu sync.Mutex
	logger *slog.Logger
}

func newConnection(id, principalID string, stream frameSender, logger *slog.Logger) *Connection {
	return &Connection{
		ID:          id,
		PrincipalID: principalID,
		ConnectedAt: time.Now(),
		stream:      stream,
		logger:      logger,
	}
}

// Send writes one envelope to the stream.
func (c *Connection) Send(envelope []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.stream.Send(wrapperspb.Bytes(envelope))
}

// connTable tracks open connections by ID.
type connTable struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

func newConnTable() *connTable {
	return &connTable{conns: make(map[string]*Connection)}
}

// register adds a connection. Returns ErrConnectionAlreadyRegistered if the
// ID is taken.
func (t *connTable) register(c *Connection) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.conns[c.ID]; exists {
		return ErrConnectionAlreadyRegistered
	}
	t.conns[c.ID] = c
	return nil
}

// unregister removes the connection if it is still the registered one.
func (t *connTable) unregister(c *Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conns[c.ID] == c {
		delete(t.conns, c.ID)
	}
}

func (t *connTable) get(id string) (*Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.conns[id]
	return c, ok
}

func (t *connTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}
