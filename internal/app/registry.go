package app

import (
	"sync"

	"github.com/avelk/Parley/internal/core"
	"github.com/avelk/Parley/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// AddResult reports what an Add actually did, decided inside the
// registry's critical section. First is the 0->1 transition the presence
// layer keys on.
type AddResult struct {
	Added bool
	First bool
	Count int
}

// RemoveResult mirrors AddResult for the 1->0 direction.
type RemoveResult struct {
	Removed bool
	Last    bool
	Count   int
}

// ConnectionRegistry is the bidirectional user <-> connection mapping.
// Both indices live under one mutex so that a connection is in the
// forward set for user U exactly when the reverse index maps it to U,
// no matter how adds and removes interleave.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	forward map[domain.UserID]map[core.ConnID]struct{}
	reverse map[core.ConnID]domain.UserID
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		forward: make(map[domain.UserID]map[core.ConnID]struct{}),
		reverse: make(map[core.ConnID]domain.UserID),
	}
}

// Add registers a connection for a user. Idempotent; empty identifiers
// are a silent no-op by policy. A connection already owned by another
// user is left untouched.
func (r *ConnectionRegistry) Add(user domain.UserID, conn core.ConnID) AddResult {
	if user == "" || conn == "" {
		return AddResult{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.reverse[conn]; ok {
		if owner != user {
			log.Warn().Str("module", "app.registry").Str("conn", string(conn)).Str("owner", string(owner)).Str("user", string(user)).Msg("connection already owned by another user")
		}
		return AddResult{Count: len(r.forward[owner])}
	}

	set, ok := r.forward[user]
	if !ok {
		set = make(map[core.ConnID]struct{})
		r.forward[user] = set
	}
	set[conn] = struct{}{}
	r.reverse[conn] = user
	return AddResult{Added: true, First: len(set) == 1, Count: len(set)}
}

// Remove deregisters a connection. Idempotent. Removing the last
// connection of a user drops the forward entry entirely, which is what
// the presence zero-check relies on.
func (r *ConnectionRegistry) Remove(user domain.UserID, conn core.ConnID) RemoveResult {
	if user == "" || conn == "" {
		return RemoveResult{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.forward[user]
	if !ok {
		return RemoveResult{}
	}
	if _, ok = set[conn]; !ok {
		return RemoveResult{Count: len(set)}
	}
	delete(set, conn)
	delete(r.reverse, conn)
	if len(set) == 0 {
		delete(r.forward, user)
		return RemoveResult{Removed: true, Last: true}
	}
	return RemoveResult{Removed: true, Count: len(set)}
}

// ConnectionsOf returns a snapshot of the user's live connections.
func (r *ConnectionRegistry) ConnectionsOf(user domain.UserID) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.forward[user])
}

func (r *ConnectionRegistry) HasConnections(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forward[user]) > 0
}

// OnlineUsers returns a snapshot of every user with at least one
// connection.
func (r *ConnectionRegistry) OnlineUsers() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.forward)
}

// UserOf resolves the owner of a connection. Used during disconnect so
// the caller does not have to cache the identity.
func (r *ConnectionRegistry) UserOf(conn core.ConnID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.reverse[conn]
	return user, ok
}

// Count is the total number of live connections across all users.
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reverse)
}
