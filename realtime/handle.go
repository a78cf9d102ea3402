//go:generate go run go.uber.org/mock/mockgen -source=handle.go -destination=../mocks/mock_handle.go -package=mocks
package realtime

import (
	"github.com/google/uuid"

	"chatd/wire"
)

// Handle is a clonable, thread-safe reference to one live connection.
// Registries hold handles, never the connection itself: the connection actor
// owns its resources and tears them down on transport close, at which point
// a stale handle degrades to a harmless no-op.
type Handle interface {
	// ID identifies the physical connection. Minted once per accepted
	// connection, never reused.
	ID() uuid.UUID

	// Push enqueues a frame on the connection's outbound queue without
	// blocking. It returns false when the queue is full or the connection
	// is gone; the caller drops the frame for this one subscriber and moves
	// on. A slow consumer must never stall a broadcast.
	Push(frame wire.Frame) bool
}
