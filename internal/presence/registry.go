package presence

import (
	"sync"

	"photochat/internal/event"
)

// Conn is the registry's view of a live connection.
type Conn interface {
	// Send enqueues a frame for delivery. It reports false when the
	// connection can no longer accept frames.
	Send(ev event.Outbound) bool
	// Close terminates the connection. Safe to call more than once.
	Close()
}

// Registry maps each user to at most one live connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]Conn)}
}

// Register installs conn for userID. If another connection was registered it
// is returned so the caller can close it.
func (r *Registry) Register(userID int64, conn Conn) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, replaced := r.conns[userID]
	r.conns[userID] = conn
	if prev == conn {
		return nil, false
	}
	return prev, replaced
}

// Lookup returns the live connection for userID, if any.
func (r *Registry) Lookup(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// Unregister removes the entry for userID. Removing an absent entry is a no-op.
func (r *Registry) Unregister(userID int64) {
	r.mu.Lock()
	delete(r.conns, userID)
	r.mu.Unlock()
}

// Release removes the entry for userID only while it still points at conn.
func (r *Registry) Release(userID int64, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current == conn {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Count returns the number of registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot copies the current entries.
func (r *Registry) Snapshot() map[int64]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]Conn, len(r.conns))
	for id, conn := range r.conns {
		out[id] = conn
	}
	return out
}

// Forward sends ev to userID if the user is live. A missing or saturated
// connection is not an error.
func (r *Registry) Forward(userID int64, ev event.Outbound) bool {
	conn, ok := r.Lookup(userID)
	if !ok {
		return false
	}
	return conn.Send(ev)
}
