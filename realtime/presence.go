package realtime

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"chatd/domain"
	"chatd/errors"
)

// PresenceRegistry is the single source of truth for who counts as online
// and in what mode. An entry exists exactly while the user has at least one
// live authenticated connection; absence of an entry is how "really offline"
// is represented, so the derived state can never be confused with a stored
// one.
type PresenceRegistry struct {
	mu       sync.RWMutex
	statuses map[uuid.UUID]domain.OnlineStatus
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{statuses: make(map[uuid.UUID]domain.OnlineStatus)}
}

// GetStatus never fails: a user without an entry is Offline.
func (p *PresenceRegistry) GetStatus(user uuid.UUID) domain.OnlineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status, ok := p.statuses[user]
	if !ok {
		return domain.StatusOffline
	}
	return status
}

// MarkOnline creates the entry when a user's first connection authenticates.
// An existing entry is kept as-is so a second device does not reset a
// deliberately chosen AFK or DND state.
func (p *PresenceRegistry) MarkOnline(user uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.statuses[user]; !ok {
		p.statuses[user] = domain.StatusOnline
	}
}

// SetStatus overwrites the stored state. It fails for a user with no live
// connection (no entry) and for StatusOffline, which is derived and never
// settable: a client that wants to look offline sends AppearOffline.
func (p *PresenceRegistry) SetStatus(user uuid.UUID, status domain.OnlineStatus) error {
	if status == domain.StatusOffline {
		return fmt.Errorf("%w: offline cannot be requested, use APPEAR_AS_OFFLINE", errors.ErrBadRequest)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.statuses[user]; !ok {
		return fmt.Errorf("%w: user %s has no live connection", errors.ErrBadRequest, user)
	}
	p.statuses[user] = status
	return nil
}

// RemoveStatus deletes the entry when the user's last connection goes away.
// No-op if already absent.
func (p *PresenceRegistry) RemoveStatus(user uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.statuses, user)
}
