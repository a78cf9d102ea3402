package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatd/domain"
	"chatd/errors"
)

var validate = validator.New()

type channelCreateRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=64"`
	Description string `json:"description" validate:"max=256"`
}

type channelResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleChannelCreate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[channelCreateRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errors.ErrBadRequest, err))
		return
	}

	channel, err := s.channels.Create(req.Name, req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("Channel created", "channel", channel.ID, "name", channel.Name)
	s.writeJSON(w, http.StatusCreated, toChannelResponse(channel))
}

func (s *Server) handleChannelList(w http.ResponseWriter, _ *http.Request) {
	channels, err := s.channels.GetAll()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"channels": lo.Map(channels, func(c domain.TextChannel, _ int) channelResponse {
			return toChannelResponse(c)
		}),
	})
}

func (s *Server) handleChannelDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid channel id", errors.ErrBadRequest))
		return
	}
	if id == domain.SystemChannel {
		s.writeError(w, fmt.Errorf("%w: the system channel cannot be deleted", errors.ErrForbidden))
		return
	}

	if err := s.channels.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toChannelResponse(c domain.TextChannel) channelResponse {
	return channelResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}
