// ABOUTME: Thread-safe registry mapping message types to their schema and handler
// ABOUTME: Each type is declared exactly once; lookups of unknown types report not found

package protocol

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/mediator-admin/internal/message"
)

// Declaration binds a message type to its payload shape and handler.
type Declaration struct {
	Type    message.Type
	Schema  message.Schema
	New     func() message.Payload // allocates an empty payload to decode into
	Handler Handler
}

// Registry holds the declared message types. Build one per process (or per
// test) with NewRegistry and populate it at startup.
type Registry struct {
	mu    sync.RWMutex
	decls map[message.Type]Declaration
	// order preserves declaration order for listing
	order  []message.Type
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		decls:  make(map[message.Type]Declaration),
		logger: logger,
	}
}

// Declare registers a message type.
// Returns ErrTypeAlreadyDeclared if the type is already registered and
// ErrInvalidDeclaration if the declaration is incomplete.
func (r *Registry) Declare(d Declaration) error {
	if d.Type == "" {
		return fmt.Errorf("%w: empty message type", ErrInvalidDeclaration)
	}
	if d.New == nil {
		return fmt.Errorf("%w: %s has no payload constructor", ErrInvalidDeclaration, d.Type)
	}
	if d.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidDeclaration, d.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decls[d.Type]; exists {
		return fmt.Errorf("%w: %s", ErrTypeAlreadyDeclared, d.Type)
	}

	r.decls[d.Type] = d
	r.order = append(r.order, d.Type)

	r.logger.Debug("message type declared",
		"type", d.Type,
		"fields", len(d.Schema),
		"total_types", len(r.decls),
	)
	return nil
}

// Lookup returns the declaration for a message type.
func (r *Registry) Lookup(t message.Type) (Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.decls[t]
	return d, ok
}

// Types returns all declared message types in declaration order.
func (r *Registry) Types() []message.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]message.Type, len(r.order))
	copy(types, r.order)
	return types
}

// Handlers returns a copy of the type to handler mapping.
func (r *Registry) Handlers() map[message.Type]Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := make(map[message.Type]Handler, len(r.decls))
	for t, d := range r.decls {
		handlers[t] = d.Handler
	}
	return handlers
}

// Len returns the number of declared types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decls)
}
