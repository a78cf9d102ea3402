// Package wire implements the JSON frame protocol spoken over the duplex
// connection. Every frame is an envelope of the form
//
//	{"version": "0.1.0", "type": "<MessageType>", "content": {...}}
//
// with string-valued content fields. Inbound text is decoded into a closed
// set of typed requests before any business logic runs; unknown type tags
// are rejected as BadRequest rather than ignored.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatd/domain"
	"chatd/errors"
)

// Version is the protocol version stamped on every frame the server emits.
const Version = "0.1.0"

// MessageType is the type tag of a frame.
type MessageType string

const (
	// TypeAuth authenticates the connection before any other communication
	// is allowed.
	TypeAuth MessageType = "Auth"
	// TypeWelcome acknowledges a successful Auth.
	TypeWelcome MessageType = "Welcome"
	// TypeSendMessage is a client's request to post a message to a channel.
	TypeSendMessage MessageType = "SendMessage"
	// TypeMessageSent announces a persisted message to channel subscribers.
	TypeMessageSent MessageType = "MessageSent"
	// TypeChangeOnlineStatus is a client's request to change its presence.
	TypeChangeOnlineStatus MessageType = "ChangeOnlineStatus"
	// TypeUserOnlineStatus announces a presence change to other clients.
	TypeUserOnlineStatus MessageType = "UserOnlineStatus"
	// TypeSendTyping and TypeStopTyping are ephemeral typing indicators.
	// They are relayed, never persisted.
	TypeSendTyping MessageType = "SendTyping"
	TypeStopTyping MessageType = "StopTyping"
	// TypeError reports a failure; content carries an errortype field.
	TypeError MessageType = "Error"
)

// Frame is the wire envelope.
type Frame struct {
	Version string            `json:"version"`
	Type    MessageType       `json:"type"`
	Content map[string]string `json:"content"`
}

// Encode renders the frame as JSON. Frames are built internally, so an
// encoding failure is a programming bug, not an operational error.
func (f Frame) Encode() []byte {
	raw, err := json.Marshal(f)
	if err != nil {
		panic(fmt.Sprintf("wire: unencodable frame: %v", err))
	}
	return raw
}

// Request is the closed set of decoded inbound frames.
type Request interface{ isRequest() }

type AuthRequest struct {
	Token uuid.UUID
}

type SendMessageRequest struct {
	Channel uuid.UUID
	Content string
}

type ChangeStatusRequest struct {
	Status domain.OnlineStatus
}

// TypingRequest covers both SendTyping and StopTyping; Stopped tells the two
// apart.
type TypingRequest struct {
	Channel uuid.UUID
	Stopped bool
}

func (AuthRequest) isRequest()         {}
func (SendMessageRequest) isRequest()  {}
func (ChangeStatusRequest) isRequest() {}
func (TypingRequest) isRequest()       {}

// Decode parses raw frame text into a typed request. Every failure maps to a
// client-facing error kind: malformed JSON or an unknown tag is BadRequest,
// a status of OFFLINE is BadRequest (offline is derived, never settable).
func Decode(raw []byte) (Request, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: undecodable frame: %v", errors.ErrBadRequest, err)
	}

	switch frame.Type {
	case TypeAuth:
		token, err := uuid.Parse(frame.Content["token"])
		if err != nil {
			return nil, fmt.Errorf("%w: token is not a uuid", errors.ErrUnauthorized)
		}
		return AuthRequest{Token: token}, nil

	case TypeSendMessage:
		channel, err := uuid.Parse(frame.Content["channel"])
		if err != nil {
			return nil, fmt.Errorf("%w: channel is not a uuid", errors.ErrBadRequest)
		}
		content := frame.Content["content"]
		if content == "" {
			return nil, fmt.Errorf("%w: empty message content", errors.ErrBadRequest)
		}
		return SendMessageRequest{Channel: channel, Content: content}, nil

	case TypeChangeOnlineStatus:
		status, err := domain.ParseOnlineStatus(frame.Content["status"])
		if err != nil {
			return nil, err
		}
		return ChangeStatusRequest{Status: status}, nil

	case TypeSendTyping, TypeStopTyping:
		channel, err := uuid.Parse(frame.Content["channel"])
		if err != nil {
			return nil, fmt.Errorf("%w: channel is not a uuid", errors.ErrBadRequest)
		}
		return TypingRequest{Channel: channel, Stopped: frame.Type == TypeStopTyping}, nil

	default:
		return nil, fmt.Errorf("%w: unknown frame type %q", errors.ErrBadRequest, frame.Type)
	}
}

// Welcome builds the reply to a successful authentication.
func Welcome(userID uuid.UUID) Frame {
	return Frame{
		Version: Version,
		Type:    TypeWelcome,
		Content: map[string]string{"userid": userID.String()},
	}
}

// MessageSent builds the fan-out frame for a persisted message.
func MessageSent(msg domain.ChatMessage) Frame {
	return Frame{
		Version: Version,
		Type:    TypeMessageSent,
		Content: map[string]string{
			"id":        msg.ID.String(),
			"author":    msg.Author.String(),
			"channel":   msg.Channel.String(),
			"content":   msg.Content,
			"timestamp": msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// UserOnlineStatus builds the presence-changed notice. The status string
// renders Offline and AppearOffline identically.
func UserOnlineStatus(user uuid.UUID, status domain.OnlineStatus) Frame {
	return Frame{
		Version: Version,
		Type:    TypeUserOnlineStatus,
		Content: map[string]string{
			"user":   user.String(),
			"status": status.String(),
		},
	}
}

// Typing builds the relayed typing indicator.
func Typing(user, channel uuid.UUID, stopped bool) Frame {
	typ := TypeSendTyping
	if stopped {
		typ = TypeStopTyping
	}
	return Frame{
		Version: Version,
		Type:    typ,
		Content: map[string]string{
			"user":    user.String(),
			"channel": channel.String(),
		},
	}
}

// Error builds the failure frame for a client-initiated request.
func Error(err error) Frame {
	return Frame{
		Version: Version,
		Type:    TypeError,
		Content: map[string]string{"errortype": errors.WireType(err)},
	}
}
