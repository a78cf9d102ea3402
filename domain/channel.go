package domain

import (
	"time"

	"github.com/google/uuid"
)

// SystemChannel is the well-known topic every authenticated connection is
// subscribed to. Presence updates fan out on it.
var SystemChannel = uuid.UUID{}

// TextChannel is a named topic that groups messages and subscribers.
// Channels are created and deleted over the REST API; the realtime core only
// reads identity and existence.
type TextChannel struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
}
