// Package domain contains the core concepts of the chat system: users,
// sessions, text channels, messages, and presence. No transport, storage, or
// runtime logic lives here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is an immutable chat event. It is persisted before it is ever
// fanned out, so history queries are always consistent with or ahead of what
// connected clients saw.
type ChatMessage struct {
	ID        uuid.UUID
	Author    uuid.UUID
	Channel   uuid.UUID
	Content   string
	Lang      string
	CreatedAt time.Time
}
