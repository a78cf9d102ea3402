package realtime

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatd/domain"
	goerrors "chatd/errors"
	"chatd/mocks"
	"chatd/wire"
)

type coordinatorFixture struct {
	coord    *Coordinator
	broker   *Broker
	store    *mocks.MockSessionStore
	channels *mocks.MockChannelStore
	messages *mocks.MockMessageStore
}

func newCoordinatorFixture(t *testing.T, visibility ChannelVisibility) coordinatorFixture {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	channels := mocks.NewMockChannelStore(ctrl)
	messages := mocks.NewMockMessageStore(ctrl)

	log := slog.Default()
	broker := NewBroker(log)
	ingress := NewMessageIngress(log, broker, channels, messages)
	return coordinatorFixture{
		coord:    NewCoordinator(log, broker, store, channels, ingress, visibility),
		broker:   broker,
		store:    store,
		channels: channels,
		messages: messages,
	}
}

func validSession(user uuid.UUID) domain.Session {
	now := time.Now().UTC()
	return domain.Session{
		Token:     uuid.New(),
		Subject:   user,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.SessionTTL),
	}
}

func TestCoordinator_Authenticate_Subscribes_And_Flips_Presence(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture(t, nil)
	user := uuid.New()
	session := validSession(user)
	channelA := domain.TextChannel{ID: uuid.New(), Name: "general"}
	channelB := domain.TextChannel{ID: uuid.New(), Name: "random"}

	f.store.EXPECT().GetAndRenew(session.Token).Return(session, nil)
	f.channels.EXPECT().GetAll().Return([]domain.TextChannel{channelA, channelB}, nil)

	// Given: an observer already on the system channel
	observer := newFakeHandle()
	f.broker.Subscribe(observer, domain.SystemChannel)

	conn := newFakeHandle()
	got, err := f.coord.Authenticate(conn, session.Token)
	req.NoError(err)
	req.Equal(user, got)

	// Then: subscribed to the system channel and every visible channel
	req.ElementsMatch(
		[]uuid.UUID{domain.SystemChannel, channelA.ID, channelB.ID},
		f.broker.Subscriptions(conn.ID()))

	// And: presence flipped to online with a system notice
	req.Equal(domain.StatusOnline, f.coord.GetPresence(user))
	req.Len(observer.frames, 1)
	req.Equal(wire.TypeUserOnlineStatus, observer.frames[0].Type)
	req.Equal("ONLINE", observer.frames[0].Content["status"])
}

func TestCoordinator_Second_Connection_Does_Not_Rebroadcast_Online(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture(t, nil)
	user := uuid.New()
	sessionA, sessionB := validSession(user), validSession(user)

	f.store.EXPECT().GetAndRenew(sessionA.Token).Return(sessionA, nil)
	f.store.EXPECT().GetAndRenew(sessionB.Token).Return(sessionB, nil)
	f.channels.EXPECT().GetAll().Return(nil, nil).Times(2)

	observer := newFakeHandle()
	f.broker.Subscribe(observer, domain.SystemChannel)

	_, err := f.coord.Authenticate(newFakeHandle(), sessionA.Token)
	req.NoError(err)
	_, err = f.coord.Authenticate(newFakeHandle(), sessionB.Token)
	req.NoError(err)

	req.Len(observer.frames, 1)
}

func TestCoordinator_Authenticate_Unknown_Token_Is_Unauthorized(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture(t, nil)
	token := uuid.New()
	f.store.EXPECT().GetAndRenew(token).Return(domain.Session{}, goerrors.ErrNotFound)

	conn := newFakeHandle()
	_, err := f.coord.Authenticate(conn, token)

	req.ErrorIs(err, goerrors.ErrUnauthorized)
	req.Empty(f.broker.Subscriptions(conn.ID()))
}

func TestCoordinator_Visibility_Filters_Channel_Subscriptions(t *testing.T) {
	req := require.New(t)
	visible := domain.TextChannel{ID: uuid.New(), Name: "public"}
	hidden := domain.TextChannel{ID: uuid.New(), Name: "staff"}

	ctrl := gomock.NewController(t)
	policy := mocks.NewMockChannelVisibility(ctrl)
	policy.EXPECT().Visible(gomock.Any(), visible).Return(true)
	policy.EXPECT().Visible(gomock.Any(), hidden).Return(false)

	f := newCoordinatorFixture(t, policy)
	session := validSession(uuid.New())
	f.store.EXPECT().GetAndRenew(session.Token).Return(session, nil)
	f.channels.EXPECT().GetAll().Return([]domain.TextChannel{visible, hidden}, nil)

	conn := newFakeHandle()
	_, err := f.coord.Authenticate(conn, session.Token)
	req.NoError(err)

	req.ElementsMatch(
		[]uuid.UUID{domain.SystemChannel, visible.ID},
		f.broker.Subscriptions(conn.ID()))
}

func TestCoordinator_Disconnect_Last_Connection_Goes_Offline(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture(t, nil)
	user := uuid.New()
	session := validSession(user)
	f.store.EXPECT().GetAndRenew(session.Token).Return(session, nil)
	f.channels.EXPECT().GetAll().Return(nil, nil)

	conn := newFakeHandle()
	_, err := f.coord.Authenticate(conn, session.Token)
	req.NoError(err)

	observer := newFakeHandle()
	f.broker.Subscribe(observer, domain.SystemChannel)

	f.coord.Disconnect(conn.ID(), user)

	// Then: subscriptions removed, presence derived to offline, notice sent
	req.Empty(f.broker.Subscriptions(conn.ID()))
	req.Equal(domain.StatusOffline, f.coord.GetPresence(user))
	req.False(f.coord.Sessions().Connected(user))
	req.Len(observer.frames, 1)
	req.Equal("OFFLINE", observer.frames[0].Content["status"])
}

func TestCoordinator_Disconnect_Unauthenticated_Connection(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture(t, nil)

	observer := newFakeHandle()
	f.broker.Subscribe(observer, domain.SystemChannel)

	// When: a connection that never authenticated goes away
	f.coord.Disconnect(uuid.New(), uuid.Nil)

	// Then: no presence notice is broadcast
	req.Empty(observer.frames)
}

func TestCoordinator_SetPresence_Broadcasts_On_Success_Only(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture(t, nil)
	user := uuid.New()
	session := validSession(user)
	f.store.EXPECT().GetAndRenew(session.Token).Return(session, nil)
	f.channels.EXPECT().GetAll().Return(nil, nil)

	conn := newFakeHandle()
	_, err := f.coord.Authenticate(conn, session.Token)
	req.NoError(err)

	observer := newFakeHandle()
	f.broker.Subscribe(observer, domain.SystemChannel)

	req.NoError(f.coord.SetPresence(user, domain.StatusAfk))
	req.Len(observer.frames, 1)
	req.Equal("AFK", observer.frames[0].Content["status"])

	// When: the rejected offline request
	err = f.coord.SetPresence(user, domain.StatusOffline)
	req.ErrorIs(err, goerrors.ErrBadRequest)
	req.Len(observer.frames, 1)
}

func TestCoordinator_RelayTyping_Skips_Origin(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture(t, nil)
	channel := uuid.New()
	origin := newFakeHandle()
	peer := newFakeHandle()
	f.broker.Subscribe(origin, channel)
	f.broker.Subscribe(peer, channel)

	f.coord.RelayTyping(uuid.New(), origin.ID(), channel, false)
	f.coord.RelayTyping(uuid.New(), origin.ID(), channel, true)

	req.Empty(origin.frames)
	req.Len(peer.frames, 2)
	req.Equal(wire.TypeSendTyping, peer.frames[0].Type)
	req.Equal(wire.TypeStopTyping, peer.frames[1].Type)
}
