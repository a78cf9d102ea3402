package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"chatd/wire"
)

// Broker maintains the bipartite subscription graph between connections and
// channels and performs fan-out. All operations are serialized through one
// mutex, which is what gives the two public ordering guarantees: a batch
// subscribe can never interleave with a concurrent UnsubscribeAll for the
// same connection, and broadcasts on one channel reach subscribers in the
// order the Broadcast calls were made.
//
// Delivery is best-effort and fire-and-forget. Handle.Push never blocks, so
// holding the lock across a fan-out is bounded by subscriber count, not by
// downstream consumption.
type Broker struct {
	mu      sync.Mutex
	subs    *pubSub[uuid.UUID, uuid.UUID]
	handles map[uuid.UUID]Handle
	log     *slog.Logger
}

func NewBroker(log *slog.Logger) *Broker {
	return &Broker{
		subs:    newPubSub[uuid.UUID, uuid.UUID](),
		handles: make(map[uuid.UUID]Handle),
		log:     log,
	}
}

// Subscribe adds the edge (conn, channel). Idempotent; subscribing to a
// channel nobody ever publishes on is allowed and harmless.
func (b *Broker) Subscribe(conn Handle, channel uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles[conn.ID()] = conn
	b.subs.sub(conn.ID(), channel)
}

// SubscribeMany adds one edge per channel, atomically with respect to any
// concurrent UnsubscribeAll: either the whole batch lands before a teardown
// removes it again, or after, never partially.
func (b *Broker) SubscribeMany(conn Handle, channels []uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles[conn.ID()] = conn
	for _, channel := range channels {
		b.subs.sub(conn.ID(), channel)
	}
}

// Unsubscribe removes one edge. No-op if absent.
func (b *Broker) Unsubscribe(conn Handle, channel uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs.unsub(conn.ID(), channel)
	if len(b.subs.topicsOf(conn.ID())) == 0 {
		delete(b.handles, conn.ID())
	}
}

// UnsubscribeAll removes every edge of the connection and drops its handle.
// Called from the connection's teardown path; safe to call for a connection
// with zero subscriptions, and idempotent.
func (b *Broker) UnsubscribeAll(connID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs.unsubAll(connID)
	delete(b.handles, connID)
}

// Broadcast pushes the frame to every connection currently subscribed to the
// channel. A full or dead subscriber queue drops the frame for that one
// subscriber only.
func (b *Broker) Broadcast(channel uuid.UUID, frame wire.Frame) {
	b.broadcast(channel, frame, uuid.Nil)
}

// BroadcastExcept behaves like Broadcast but skips one connection. Used when
// the echo policy suppresses delivery to the originating connection.
func (b *Broker) BroadcastExcept(channel uuid.UUID, frame wire.Frame, origin uuid.UUID) {
	b.broadcast(channel, frame, origin)
}

func (b *Broker) broadcast(channel uuid.UUID, frame wire.Frame, skip uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, connID := range b.subs.subsOf(channel) {
		if connID == skip {
			continue
		}
		handle, ok := b.handles[connID]
		if !ok {
			continue
		}
		if !handle.Push(frame) {
			b.log.Warn("Dropping frame for slow subscriber",
				"conn", connID, "channel", channel, "type", frame.Type)
		}
	}
}

// Subscriptions returns the channels a connection is subscribed to. Test and
// debug surface.
func (b *Broker) Subscriptions(connID uuid.UUID) []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs.topicsOf(connID)
}

// Subscribers returns the connection ids subscribed to a channel.
func (b *Broker) Subscribers(channel uuid.UUID) []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs.subsOf(channel)
}
