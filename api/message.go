package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatd/auth"
	"chatd/domain"
	"chatd/errors"
	"chatd/repositories"
)

type messageSendRequest struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Content   string    `json:"content"`
}

type messageResponse struct {
	ID      uuid.UUID `json:"id"`
	Channel uuid.UUID `json:"channel"`
	Author  uuid.UUID `json:"author"`
	Content string    `json:"content"`
	Lang    string    `json:"lang,omitempty"`
	At      time.Time `json:"at"`
}

// handleMessageSend feeds the same ingress pipeline as the websocket path.
// The origin connection is nil, so the author's own connections always
// receive the broadcast.
func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.writeError(w, errors.ErrUnauthorized)
		return
	}

	req, err := decodeBody[messageSendRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Content == "" {
		s.writeError(w, fmt.Errorf("%w: empty content", errors.ErrBadRequest))
		return
	}

	msg, err := s.coord.SubmitMessage(userID, uuid.Nil, req.ChannelID, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uuid.UUID{"id": msg.ID})
}

func (s *Server) handleMessageHistory(w http.ResponseWriter, r *http.Request) {
	channel, err := uuid.Parse(r.URL.Query().Get("channel"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid channel id", errors.ErrBadRequest))
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, next, err := s.messages.History(channel, cursor, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"messages": lo.Map(messages, func(m domain.ChatMessage, _ int) messageResponse {
			return toMessageResponse(m)
		}),
		"cursor": next,
	})
}

func (s *Server) handleMessageSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, fmt.Errorf("%w: missing query", errors.ErrBadRequest))
		return
	}
	channel, err := uuid.Parse(r.URL.Query().Get("channel"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid channel id", errors.ErrBadRequest))
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	hits, total, err := s.search.SearchPaginated(r.Context(), query, channel, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"total": total,
		"hits": lo.Map(hits, func(hit repositories.SearchHit, _ int) messageResponse {
			return messageResponse{
				ID:      hit.ID,
				Channel: hit.Channel,
				Author:  hit.Author,
				Content: hit.Content,
				At:      hit.At,
			}
		}),
	})
}

func toMessageResponse(m domain.ChatMessage) messageResponse {
	return messageResponse{
		ID:      m.ID,
		Channel: m.Channel,
		Author:  m.Author,
		Content: m.Content,
		Lang:    m.Lang,
		At:      m.CreatedAt,
	}
}
