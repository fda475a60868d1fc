// Package registry tracks the live voice sessions of the server, indexed by
// session ID and by owning user. The server registers a session when a
// connection is accepted and removes it when the connection closes; the
// introspection endpoints read the registry to report who is connected.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Member is the view of a session the registry needs.
type Member interface {
	ID() string
	UserID() string
	CreatedAt() time.Time
}

// Notifier is implemented by members that accept out-of-band messages.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Registry is a concurrency-safe index of live sessions.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]Member
	byUser map[string]map[string]Member
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[string]Member),
		byUser: make(map[string]map[string]Member),
	}
}

// Add registers a session. Fails when a session with the same ID is already
// registered.
func (r *Registry) Add(m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := m.ID()
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("registry: session %q already registered", id)
	}
	r.byID[id] = m

	user := m.UserID()
	if r.byUser[user] == nil {
		r.byUser[user] = make(map[string]Member)
	}
	r.byUser[user][id] = m
	return nil
}

// Remove unregisters the session with the given ID. Removing an unknown ID
// is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)

	user := m.UserID()
	delete(r.byUser[user], id)
	if len(r.byUser[user]) == 0 {
		delete(r.byUser, user)
	}
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	return m, ok
}

// ForUser returns all live sessions owned by userID.
func (r *Registry) ForUser(userID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]Member, 0, len(r.byUser[userID]))
	for _, m := range r.byUser[userID] {
		members = append(members, m)
	}
	return members
}

// Snapshot returns all live sessions.
func (r *Registry) Snapshot() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]Member, 0, len(r.byID))
	for _, m := range r.byID {
		members = append(members, m)
	}
	return members
}

// Notify delivers message to every live session owned by userID that
// implements Notifier and reports how many deliveries succeeded. Delivery
// failures are skipped; the caller learns about unreachable sessions from
// the count.
func (r *Registry) Notify(ctx context.Context, userID, message string) int {
	members := r.ForUser(userID)
	delivered := 0
	for _, m := range members {
		n, ok := m.(Notifier)
		if !ok {
			continue
		}
		if err := n.Notify(ctx, message); err == nil {
			delivered++
		}
	}
	return delivered
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
