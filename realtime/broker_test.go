package realtime

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chatd/domain"
	"chatd/wire"
)

// fakeHandle records pushed frames; full simulates a saturated send queue.
type fakeHandle struct {
	id     uuid.UUID
	frames []wire.Frame
	full   bool
}

func newFakeHandle() *fakeHandle { return &fakeHandle{id: uuid.New()} }

func (f *fakeHandle) ID() uuid.UUID { return f.id }

func (f *fakeHandle) Push(frame wire.Frame) bool {
	if f.full {
		return false
	}
	f.frames = append(f.frames, frame)
	return true
}

func testFrame() wire.Frame {
	return wire.UserOnlineStatus(uuid.New(), domain.StatusOnline)
}

func TestBroker_Broadcast_Reaches_Exactly_The_Subscribers(t *testing.T) {
	req := require.New(t)
	broker := NewBroker(slog.Default())
	channel, otherChannel := uuid.New(), uuid.New()

	subscribed := newFakeHandle()
	elsewhere := newFakeHandle()
	broker.Subscribe(subscribed, channel)
	broker.Subscribe(elsewhere, otherChannel)

	// When: broadcasting on one channel
	broker.Broadcast(channel, testFrame())

	// Then: only the channel's subscriber received it
	req.Len(subscribed.frames, 1)
	req.Empty(elsewhere.frames)
}

func TestBroker_BroadcastExcept_Skips_The_Origin_Only(t *testing.T) {
	req := require.New(t)
	broker := NewBroker(slog.Default())
	channel := uuid.New()

	origin := newFakeHandle()
	peer := newFakeHandle()
	broker.Subscribe(origin, channel)
	broker.Subscribe(peer, channel)

	broker.BroadcastExcept(channel, testFrame(), origin.ID())

	req.Empty(origin.frames)
	req.Len(peer.frames, 1)
}

func TestBroker_Late_Subscriber_Misses_Earlier_Broadcasts(t *testing.T) {
	req := require.New(t)
	broker := NewBroker(slog.Default())
	channel := uuid.New()

	early := newFakeHandle()
	broker.Subscribe(early, channel)
	broker.Broadcast(channel, testFrame())

	// When: a connection subscribes after the broadcast
	late := newFakeHandle()
	broker.Subscribe(late, channel)
	broker.Broadcast(channel, testFrame())

	// Then: the late subscriber only sees broadcasts made after its subscribe
	req.Len(early.frames, 2)
	req.Len(late.frames, 1)
}

func TestBroker_Slow_Subscriber_Drops_Frame_Without_Affecting_Peers(t *testing.T) {
	req := require.New(t)
	broker := NewBroker(slog.Default())
	channel := uuid.New()

	slow := newFakeHandle()
	slow.full = true
	healthy := newFakeHandle()
	broker.Subscribe(slow, channel)
	broker.Subscribe(healthy, channel)

	broker.Broadcast(channel, testFrame())

	// Then: the healthy subscriber is unaffected by the drop
	req.Empty(slow.frames)
	req.Len(healthy.frames, 1)
}

func TestBroker_SubscribeMany_Lands_As_One_Batch(t *testing.T) {
	req := require.New(t)
	broker := NewBroker(slog.Default())
	conn := newFakeHandle()
	channels := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	broker.SubscribeMany(conn, channels)

	req.ElementsMatch(channels, broker.Subscriptions(conn.ID()))
}

func TestBroker_UnsubscribeAll_Removes_Every_Edge_And_The_Handle(t *testing.T) {
	req := require.New(t)
	broker := NewBroker(slog.Default())
	conn := newFakeHandle()
	channels := []uuid.UUID{uuid.New(), uuid.New()}
	broker.SubscribeMany(conn, channels)

	broker.UnsubscribeAll(conn.ID())

	req.Empty(broker.Subscriptions(conn.ID()))
	for _, channel := range channels {
		req.Empty(broker.Subscribers(channel))
	}

	// And: a broadcast after teardown cannot reach the connection
	broker.Broadcast(channels[0], testFrame())
	req.Empty(conn.frames)

	// And: tearing down twice is a no-op
	broker.UnsubscribeAll(conn.ID())
}

func TestBroker_Unsubscribe_Single_Edge(t *testing.T) {
	req := require.New(t)
	broker := NewBroker(slog.Default())
	conn := newFakeHandle()
	keep, drop := uuid.New(), uuid.New()
	broker.SubscribeMany(conn, []uuid.UUID{keep, drop})

	broker.Unsubscribe(conn, drop)

	req.Equal([]uuid.UUID{keep}, broker.Subscriptions(conn.ID()))
	broker.Broadcast(drop, testFrame())
	req.Empty(conn.frames)
	broker.Broadcast(keep, testFrame())
	req.Len(conn.frames, 1)
}
