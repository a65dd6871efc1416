// Package presence tracks which users currently hold a live connection.
package presence

import (
	"context"
	"log/slog"
	"sync"
)

// Conn is the handle the registry keeps for a live connection. It is
// deliberately narrow so the registry stays decoupled from the transport.
type Conn interface {
	// Push sends one event to the connection.
	Push(ctx context.Context, event any) error
	// Close terminates the connection with a reason.
	Close(reason string)
}

// Registry is the process-wide map from user ID to active connection.
// One session per user: a reconnect overwrites the previous entry.
type Registry struct {
	mu     sync.RWMutex
	active map[string]Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]Conn)}
}

// Register adds a connection for a user, displacing any existing one.
// The displaced connection is closed so the user never holds two slots.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.active[userID]; ok && existing != conn {
		existing.Close("session replaced")
	}

	r.active[userID] = conn
	slog.Info("Connection registered", "user_id", userID)
}

// Lookup returns the active connection for a user, or nil if offline.
func (r *Registry) Lookup(userID string) Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[userID]
}

// Deregister removes the entry for a user if it still belongs to conn and
// reports whether it did. A reconnect that already replaced the entry is
// left untouched, so a disconnect racing a reconnect cannot drop the new
// session; callers can use the return value to skip offline side effects
// for a user who is still live on the replacement connection.
func (r *Registry) Deregister(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.active[userID]; ok && current == conn {
		delete(r.active, userID)
		slog.Info("Connection deregistered", "user_id", userID)
		return true
	}
	return false
}

// Snapshot returns the connections registered at this instant. Broadcasts
// iterate the snapshot without holding the registry lock.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.active))
	for _, conn := range r.active {
		conns = append(conns, conn)
	}
	return conns
}
