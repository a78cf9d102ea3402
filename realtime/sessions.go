package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// SessionRegistry tracks, per user, the set of currently authenticated
// connections that user owns. A user with two tabs open has two entries
// under one key. The registry holds non-owning handles; connection lifetime
// belongs to the connection actor.
type SessionRegistry struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]map[uuid.UUID]Handle
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{connections: make(map[uuid.UUID]map[uuid.UUID]Handle)}
}

// AddConnection registers an authenticated connection under its user,
// creating the per-user set on first use. It reports whether this was the
// user's first live connection, so presence can flip to online exactly once.
func (s *SessionRegistry) AddConnection(user, connID uuid.UUID, handle Handle) (first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.connections[user]
	if !ok {
		conns = make(map[uuid.UUID]Handle)
		s.connections[user] = conns
	}
	conns[connID] = handle
	return !ok
}

// RemoveConnection drops one connection and reports whether it was the
// user's last, so presence cleanup triggers exactly once rather than on
// every disconnect. No-op (and not "last") for unknown keys.
func (s *SessionRegistry) RemoveConnection(user, connID uuid.UUID) (last bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.connections[user]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(s.connections, user)
		return true
	}
	return false
}

// HandlesFor returns the handles of every live connection of a user, for
// targeted pushes to all of a user's devices.
func (s *SessionRegistry) HandlesFor(user uuid.UUID) []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns, ok := s.connections[user]
	if !ok {
		return nil
	}
	handles := make([]Handle, 0, len(conns))
	for _, h := range conns {
		handles = append(handles, h)
	}
	return handles
}

// ConnectedCount returns the number of users with at least one live
// connection.
func (s *SessionRegistry) ConnectedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// Connected reports whether the user has at least one live connection.
func (s *SessionRegistry) Connected(user uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections[user]) > 0
}
