package realtime

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatd/domain"
	goerrors "chatd/errors"
	"chatd/mocks"
	"chatd/wire"
)

type fakeCensor struct{}

func (fakeCensor) Censor(content string) (string, []string) {
	return "*** censored ***", []string{"badword"}
}

type fakeLang struct{}

func (fakeLang) Detect(string) string { return "en" }

func TestIngress_Unknown_Channel_Is_NotFound(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	channels := mocks.NewMockChannelStore(ctrl)
	messages := mocks.NewMockMessageStore(ctrl)
	channel := uuid.New()
	channels.EXPECT().Exists(channel).Return(false, nil)
	// Store must never be called for a rejected message.

	ingress := NewMessageIngress(slog.Default(), NewBroker(slog.Default()), channels, messages)

	_, err := ingress.Submit(uuid.New(), uuid.Nil, channel, "hello")
	req.ErrorIs(err, goerrors.ErrNotFound)
}

func TestIngress_Store_Failure_Aborts_Fanout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	channels := mocks.NewMockChannelStore(ctrl)
	messages := mocks.NewMockMessageStore(ctrl)
	channel := uuid.New()
	channels.EXPECT().Exists(channel).Return(true, nil)
	messages.EXPECT().Store(gomock.Any()).Return(fmt.Errorf("disk full"))

	broker := NewBroker(slog.Default())
	subscriber := newFakeHandle()
	broker.Subscribe(subscriber, channel)

	ingress := NewMessageIngress(slog.Default(), broker, channels, messages)

	// When: the store rejects the message
	_, err := ingress.Submit(uuid.New(), uuid.Nil, channel, "hello")

	// Then: InternalServerError, and no subscriber saw anything
	req.ErrorIs(err, goerrors.ErrInternal)
	req.Empty(subscriber.frames)
}

func TestIngress_Echo_Default_Delivers_To_Origin(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	channels := mocks.NewMockChannelStore(ctrl)
	messages := mocks.NewMockMessageStore(ctrl)
	channel := uuid.New()
	channels.EXPECT().Exists(channel).Return(true, nil)
	messages.EXPECT().Store(gomock.Any()).Return(nil)

	broker := NewBroker(slog.Default())
	origin := newFakeHandle()
	peer := newFakeHandle()
	broker.Subscribe(origin, channel)
	broker.Subscribe(peer, channel)

	ingress := NewMessageIngress(slog.Default(), broker, channels, messages)

	msg, err := ingress.Submit(uuid.New(), origin.ID(), channel, "hello")
	req.NoError(err)

	req.Len(origin.frames, 1)
	req.Len(peer.frames, 1)
	req.Equal(wire.TypeMessageSent, peer.frames[0].Type)
	req.Equal(msg.ID.String(), peer.frames[0].Content["id"])
}

func TestIngress_Echo_Disabled_Skips_Origin_Connection_Only(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	channels := mocks.NewMockChannelStore(ctrl)
	messages := mocks.NewMockMessageStore(ctrl)
	channel := uuid.New()
	channels.EXPECT().Exists(channel).Return(true, nil)
	messages.EXPECT().Store(gomock.Any()).Return(nil)

	broker := NewBroker(slog.Default())
	origin := newFakeHandle()
	otherDevice := newFakeHandle()
	broker.Subscribe(origin, channel)
	broker.Subscribe(otherDevice, channel)

	ingress := NewMessageIngress(slog.Default(), broker, channels, messages, WithEcho(false))

	_, err := ingress.Submit(uuid.New(), origin.ID(), channel, "hello")
	req.NoError(err)

	// Then: only the submitting connection is suppressed
	req.Empty(origin.frames)
	req.Len(otherDevice.frames, 1)
}

func TestIngress_Rest_Path_Always_Broadcasts_To_All(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	channels := mocks.NewMockChannelStore(ctrl)
	messages := mocks.NewMockMessageStore(ctrl)
	channel := uuid.New()
	channels.EXPECT().Exists(channel).Return(true, nil)
	messages.EXPECT().Store(gomock.Any()).Return(nil)

	broker := NewBroker(slog.Default())
	device := newFakeHandle()
	broker.Subscribe(device, channel)

	// Given: echo disabled, but the request has no originating connection
	ingress := NewMessageIngress(slog.Default(), broker, channels, messages, WithEcho(false))

	_, err := ingress.Submit(uuid.New(), uuid.Nil, channel, "hello")
	req.NoError(err)
	req.Len(device.frames, 1)
}

func TestIngress_Index_Failure_Does_Not_Block_Delivery(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	channels := mocks.NewMockChannelStore(ctrl)
	messages := mocks.NewMockMessageStore(ctrl)
	index := mocks.NewMockMessageIndex(ctrl)
	channel := uuid.New()
	channels.EXPECT().Exists(channel).Return(true, nil)
	messages.EXPECT().Store(gomock.Any()).Return(nil)
	index.EXPECT().Index(gomock.Any()).Return(fmt.Errorf("index unavailable"))

	broker := NewBroker(slog.Default())
	subscriber := newFakeHandle()
	broker.Subscribe(subscriber, channel)

	ingress := NewMessageIngress(slog.Default(), broker, channels, messages, WithIndex(index))

	_, err := ingress.Submit(uuid.New(), uuid.Nil, channel, "hello")
	req.NoError(err)
	req.Len(subscriber.frames, 1)
}

func TestIngress_Moderation_Applies_Before_Persistence(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	channels := mocks.NewMockChannelStore(ctrl)
	messages := mocks.NewMockMessageStore(ctrl)
	channel := uuid.New()
	channels.EXPECT().Exists(channel).Return(true, nil)

	var stored domain.ChatMessage
	messages.EXPECT().Store(gomock.Any()).
		Do(func(msg domain.ChatMessage) { stored = msg }).
		Return(nil)

	broker := NewBroker(slog.Default())
	subscriber := newFakeHandle()
	broker.Subscribe(subscriber, channel)

	ingress := NewMessageIngress(slog.Default(), broker, channels, messages,
		WithModeration(fakeCensor{}, fakeLang{}))

	_, err := ingress.Submit(uuid.New(), uuid.Nil, channel, "badword")
	req.NoError(err)

	// Then: both the stored record and the broadcast carry the censored text
	req.Equal("*** censored ***", stored.Content)
	req.Equal("en", stored.Lang)
	req.Equal("*** censored ***", subscriber.frames[0].Content["content"])
}
