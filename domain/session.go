package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionTTL is the sliding validity window: every successful resolution of
// a session token pushes the expiry this far into the future.
const SessionTTL = 14 * 24 * time.Hour

// Session is a persisted bearer token proving a user's identity. One session
// may back multiple concurrent connections. Distinct from the in-memory
// session registry, which tracks live connections only.
type Session struct {
	Token     uuid.UUID
	Subject   uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its sliding window at the
// given instant. Expiry is checked lazily, only when a token is resolved.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
