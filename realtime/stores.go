//go:generate go run go.uber.org/mock/mockgen -source=stores.go -destination=../mocks/mock_stores.go -package=mocks
package realtime

import (
	"github.com/google/uuid"

	"chatd/domain"
)

// The realtime core consumes persistence through these narrow interfaces and
// never embeds storage logic itself. Store calls always happen in the
// surrounding connection or ingress logic, never while a registry lock is
// held, so a slow store cannot stall unrelated broker or presence work.

// SessionStore resolves persisted auth sessions.
type SessionStore interface {
	// GetAndRenew resolves a token and, as a side effect of successful
	// resolution, pushes the session's expiry a full TTL into the future
	// (sliding-session semantics). Missing or expired tokens return a
	// NotFound kind.
	GetAndRenew(token uuid.UUID) (domain.Session, error)
}

// ChannelStore exposes channel identity and existence.
type ChannelStore interface {
	Exists(id uuid.UUID) (bool, error)
	GetAll() ([]domain.TextChannel, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	Store(msg domain.ChatMessage) error
}

// MessageIndex receives persisted messages for full-text search. Indexing is
// a side effect after persistence; its failure never aborts delivery.
type MessageIndex interface {
	Index(msg domain.ChatMessage) error
}

// ChannelVisibility decides which channels a freshly authenticated
// connection is subscribed to. The seam exists for per-channel ACLs; the
// shipped implementation allows everything.
type ChannelVisibility interface {
	Visible(user uuid.UUID, channel domain.TextChannel) bool
}

// AllowAll is the default visibility policy: every channel is visible to
// every authenticated user.
type AllowAll struct{}

func (AllowAll) Visible(uuid.UUID, domain.TextChannel) bool { return true }
