package realtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chatd/domain"
	"chatd/errors"
	"chatd/wire"
)

// Censor rewrites message content before it is persisted. The returned slice
// names the patterns that matched.
type Censor interface {
	Censor(content string) (string, []string)
}

// LangDetector tags content with an ISO 639-1 language code, or "" when
// detection is inconclusive.
type LangDetector interface {
	Detect(content string) string
}

// MessageIngress turns a validated send-message request into a persisted,
// fanned-out ChatMessage. Persistence strictly precedes fan-out: a message
// that failed to store is never broadcast.
type MessageIngress struct {
	log      *slog.Logger
	broker   *Broker
	channels ChannelStore
	messages MessageStore
	index    MessageIndex
	censor   Censor
	lang     LangDetector
	echo     bool
}

// IngressOption configures a MessageIngress.
type IngressOption func(*MessageIngress)

// WithEcho controls whether the originating connection receives its own
// broadcast. The default is true (clients de-duplicate by message id);
// WithEcho(false) suppresses delivery to the origin connection only; the
// author's other devices still receive the message.
func WithEcho(echo bool) IngressOption {
	return func(i *MessageIngress) { i.echo = echo }
}

// WithIndex attaches a full-text index fed after each successful store.
func WithIndex(index MessageIndex) IngressOption {
	return func(i *MessageIngress) { i.index = index }
}

// WithModeration attaches the censor and language tagger applied before
// persistence.
func WithModeration(censor Censor, lang LangDetector) IngressOption {
	return func(i *MessageIngress) {
		i.censor = censor
		i.lang = lang
	}
}

func NewMessageIngress(log *slog.Logger, broker *Broker, channels ChannelStore,
	messages MessageStore, opts ...IngressOption) *MessageIngress {
	ingress := &MessageIngress{
		log:      log,
		broker:   broker,
		channels: channels,
		messages: messages,
		echo:     true,
	}
	for _, opt := range opts {
		opt(ingress)
	}
	return ingress
}

// Submit validates, persists, and fans out one message. The origin is the
// connection the request arrived on; uuid.Nil marks requests coming from the
// REST surface, which have no connection to suppress echo for. The sender
// does not need to be subscribed to the channel it posts to.
func (i *MessageIngress) Submit(author, origin, channel uuid.UUID, content string) (domain.ChatMessage, error) {
	ok, err := i.channels.Exists(channel)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: channel lookup: %v", errors.ErrInternal, err)
	}
	if !ok {
		return domain.ChatMessage{}, fmt.Errorf("%w: channel %s", errors.ErrNotFound, channel)
	}

	msg := domain.ChatMessage{
		ID:        uuid.New(),
		Author:    author,
		Channel:   channel,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if i.censor != nil {
		censored, matched := i.censor.Censor(content)
		if len(matched) > 0 {
			i.log.Info("Message censored", "author", author, "matches", len(matched))
		}
		msg.Content = censored
	}
	if i.lang != nil {
		msg.Lang = i.lang.Detect(msg.Content)
	}

	// Hard ordering invariant: a storage failure aborts the fan-out, so no
	// subscriber ever sees an unpersisted message.
	if err := i.messages.Store(msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: storing message: %v", errors.ErrInternal, err)
	}

	if i.index != nil {
		if err := i.index.Index(msg); err != nil {
			i.log.Warn("Message not indexed", "id", msg.ID, "error", err)
		}
	}

	frame := wire.MessageSent(msg)
	if i.echo || origin == uuid.Nil {
		i.broker.Broadcast(channel, frame)
	} else {
		i.broker.BroadcastExcept(channel, frame, origin)
	}
	return msg, nil
}
