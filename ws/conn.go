// Package ws carries the duplex transport: one connection actor per
// accepted websocket, owning the authenticate-then-operate protocol state
// machine and the read/write pumps.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatd/errors"
	"chatd/realtime"
	"chatd/wire"
)

const (
	// writeWait bounds a single frame write to the peer.
	writeWait = 10 * time.Second
	// pongWait is how long the peer may stay silent before the read side
	// gives up; pings go out well inside that window.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	maxFrameSize = 64 * 1024
	sendBuffer   = 256
)

// Conn is one live websocket connection. It starts unauthenticated, may
// transition exactly once to authenticated, and never reverts. The actor is
// the sole owner of the socket; registries only ever hold its Handle.
type Conn struct {
	id    uuid.UUID
	sock  *websocket.Conn
	coord *realtime.Coordinator
	log   *slog.Logger

	send chan wire.Frame
	done chan struct{}
	once sync.Once

	// user is uuid.Nil until authentication succeeds. Written by the read
	// pump, read by teardown which may run on the write pump, so both sides
	// go through mu.
	mu   sync.Mutex
	user uuid.UUID
}

func newConn(sock *websocket.Conn, coord *realtime.Coordinator, log *slog.Logger) *Conn {
	id := uuid.New()
	return &Conn{
		id:    id,
		sock:  sock,
		coord: coord,
		log:   log.With("conn", id),
		send:  make(chan wire.Frame, sendBuffer),
		done:  make(chan struct{}),
	}
}

// Handle returns the clonable reference registries use to push frames to
// this connection.
func (c *Conn) Handle() realtime.Handle {
	return connHandle{id: c.id, send: c.send, done: c.done}
}

type connHandle struct {
	id   uuid.UUID
	send chan wire.Frame
	done chan struct{}
}

func (h connHandle) ID() uuid.UUID { return h.id }

// Push enqueues without blocking. A full queue or a finished connection
// drops the frame; the broker logs and moves on.
func (h connHandle) Push(frame wire.Frame) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.send <- frame:
		return true
	default:
		return false
	}
}

// run starts the pumps and blocks until the read side exits.
func (c *Conn) run() {
	go c.writePump()
	c.readPump()
}

// teardown is the single cleanup path, safe from either pump and from
// either protocol state. The coordinator removes every subscription edge
// atomically and handles last-connection presence derivation.
func (c *Conn) teardown() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		user := c.user
		c.mu.Unlock()
		c.coord.Disconnect(c.id, user)
		_ = c.sock.Close()
		c.log.Debug("Connection closed", "user", user)
	})
}

func (c *Conn) readPump() {
	defer c.teardown()

	c.sock.SetReadLimit(maxFrameSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("Unexpected websocket close", "error", err)
			}
			return
		}
		c.handleFrame(raw)
	}
}

// handleFrame processes exactly one inbound frame. Every error raised by a
// client frame is converted to an Error frame here and never terminates the
// connection: a failed authentication leaves the peer free to retry, and
// malformed input on an authenticated connection costs one Error reply.
func (c *Conn) handleFrame(raw []byte) {
	req, err := wire.Decode(raw)
	if err != nil {
		c.reply(wire.Error(err))
		return
	}

	if c.user == uuid.Nil {
		auth, ok := req.(wire.AuthRequest)
		if !ok {
			// Gate: nothing but Auth is accepted before authentication.
			c.reply(wire.Error(errors.ErrUnauthorized))
			return
		}
		user, err := c.coord.Authenticate(c.Handle(), auth.Token)
		if err != nil {
			c.reply(wire.Error(err))
			return
		}
		c.mu.Lock()
		c.user = user
		c.mu.Unlock()

		// Teardown may have fired while Authenticate was in flight; its
		// Disconnect saw uuid.Nil and missed the registrations made above.
		// Disconnect is idempotent, so compensating here is safe even when
		// teardown observed the user after all.
		select {
		case <-c.done:
			c.coord.Disconnect(c.id, user)
			return
		default:
		}
		c.reply(wire.Welcome(user))
		return
	}

	switch req := req.(type) {
	case wire.AuthRequest:
		// The unauthenticated→authenticated transition happens once.
		c.reply(wire.Error(errors.ErrBadRequest))
	case wire.SendMessageRequest:
		if _, err := c.coord.SubmitMessage(c.user, c.id, req.Channel, req.Content); err != nil {
			c.reply(wire.Error(err))
		}
	case wire.ChangeStatusRequest:
		if err := c.coord.SetPresence(c.user, req.Status); err != nil {
			c.reply(wire.Error(err))
		}
	case wire.TypingRequest:
		c.coord.RelayTyping(c.user, c.id, req.Channel, req.Stopped)
	}
}

// reply queues a direct response to this connection's own request, bypassing
// the broker.
func (c *Conn) reply(frame wire.Frame) {
	select {
	case c.send <- frame:
	default:
		c.log.Warn("Outbound queue full, dropping reply", "type", frame.Type)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case <-c.done:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.sock.WriteMessage(websocket.CloseMessage, nil)
			return
		case frame := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame.Encode()); err != nil {
				// Write failure is a transport close, never a crash.
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
