package realtime

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"chatd/domain"
	"chatd/errors"
	"chatd/wire"
)

// Coordinator is the long-lived composition of the presence registry, the
// session registry, the broker, and the message ingress, reachable from
// every connection actor. It owns the choreography between connection
// lifecycles, presence, and delivery; the registries stay oblivious of one
// another.
type Coordinator struct {
	log        *slog.Logger
	broker     *Broker
	presence   *PresenceRegistry
	sessions   *SessionRegistry
	store      SessionStore
	channels   ChannelStore
	ingress    *MessageIngress
	visibility ChannelVisibility
}

func NewCoordinator(log *slog.Logger, broker *Broker, store SessionStore,
	channels ChannelStore, ingress *MessageIngress, visibility ChannelVisibility) *Coordinator {
	if visibility == nil {
		visibility = AllowAll{}
	}
	return &Coordinator{
		log:        log,
		broker:     broker,
		presence:   NewPresenceRegistry(),
		sessions:   NewSessionRegistry(),
		store:      store,
		channels:   channels,
		ingress:    ingress,
		visibility: visibility,
	}
}

// Authenticate resolves (and renews) a session token for a connection. On
// success the connection is registered under its user and subscribed to the
// system topic and every channel visible to the user. If this is the user's
// first live connection, presence flips to online and a notice is broadcast.
//
// Store round-trips happen first; only their results touch the in-memory
// registries.
func (c *Coordinator) Authenticate(conn Handle, token uuid.UUID) (uuid.UUID, error) {
	session, err := c.store.GetAndRenew(token)
	if err != nil {
		if errors.Kind(err) == errors.ErrNotFound {
			return uuid.Nil, fmt.Errorf("%w: unknown or expired session", errors.ErrUnauthorized)
		}
		return uuid.Nil, err
	}

	all, err := c.channels.GetAll()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: listing channels: %v", errors.ErrInternal, err)
	}
	topics := []uuid.UUID{domain.SystemChannel}
	for _, channel := range all {
		if c.visibility.Visible(session.Subject, channel) {
			topics = append(topics, channel.ID)
		}
	}

	c.broker.SubscribeMany(conn, topics)
	first := c.sessions.AddConnection(session.Subject, conn.ID(), conn)
	if first {
		c.presence.MarkOnline(session.Subject)
		c.broker.Broadcast(domain.SystemChannel,
			wire.UserOnlineStatus(session.Subject, domain.StatusOnline))
	}

	c.log.Info("Authenticated websocket connection",
		"user", session.Subject, "conn", conn.ID(), "channels", len(topics)-1)
	return session.Subject, nil
}

// Disconnect is the single teardown path for a connection, from either
// protocol state. It removes every subscription edge atomically, and for
// authenticated connections also clears the session entry, flipping
// presence to derived offline when this was the user's last connection.
func (c *Coordinator) Disconnect(connID uuid.UUID, user uuid.UUID) {
	c.broker.UnsubscribeAll(connID)
	if user == uuid.Nil {
		return
	}
	if last := c.sessions.RemoveConnection(user, connID); last {
		c.presence.RemoveStatus(user)
		c.broker.Broadcast(domain.SystemChannel,
			wire.UserOnlineStatus(user, domain.StatusOffline))
		c.log.Info("Last connection closed, user offline", "user", user)
	}
}

// SubmitMessage forwards to the message ingress. origin is the submitting
// connection, or uuid.Nil for the REST path.
func (c *Coordinator) SubmitMessage(author, origin, channel uuid.UUID, content string) (domain.ChatMessage, error) {
	return c.ingress.Submit(author, origin, channel, content)
}

// SetPresence updates a user's status and broadcasts the change. The
// registry rejects both Offline (derived, never settable) and users without
// a live connection.
func (c *Coordinator) SetPresence(user uuid.UUID, status domain.OnlineStatus) error {
	if err := c.presence.SetStatus(user, status); err != nil {
		return err
	}
	c.broker.Broadcast(domain.SystemChannel, wire.UserOnlineStatus(user, status))
	return nil
}

// GetPresence returns the user's current status, Offline when unknown.
func (c *Coordinator) GetPresence(user uuid.UUID) domain.OnlineStatus {
	return c.presence.GetStatus(user)
}

// RelayTyping forwards an ephemeral typing indicator to the channel's other
// subscribers. Nothing is validated or persisted; a typing notice for a
// channel nobody subscribes to evaporates.
func (c *Coordinator) RelayTyping(user, origin, channel uuid.UUID, stopped bool) {
	c.broker.BroadcastExcept(channel, wire.Typing(user, channel, stopped), origin)
}

// Broker exposes the subscription broker to the transport layer.
func (c *Coordinator) Broker() *Broker { return c.broker }

// Presence exposes the registry for tests and the REST status endpoint.
func (c *Coordinator) Presence() *PresenceRegistry { return c.presence }

// Sessions exposes the live-connection registry.
func (c *Coordinator) Sessions() *SessionRegistry { return c.sessions }
