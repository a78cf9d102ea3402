package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chatd/auth"
	"chatd/domain"
	"chatd/errors"
)

type registerRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       uuid.UUID `json:"token"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[registerRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := auth.ValidateRegister(auth.Credentials{Name: req.Name, Password: req.Password}); err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errors.ErrBadRequest, err))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	user, err := s.users.Create(req.Name, hash)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("User registered", "user", user.ID, "name", user.Name)
	s.writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": user.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[loginRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	user, err := s.users.GetByName(req.Name)
	if err != nil {
		// Unknown names report the same kind as bad passwords.
		s.writeError(w, fmt.Errorf("%w: %w", errors.ErrUnauthorized, errors.ErrInvalidCredentials))
		return
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !match {
		s.writeError(w, fmt.Errorf("%w: %w", errors.ErrUnauthorized, errors.ErrInvalidCredentials))
		return
	}

	session, err := s.sessions.Create(user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	accessToken, expiresAt, err := s.issuer.Generate(user.ID, user.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("User logged in", "user", user.ID)
	s.writeJSON(w, http.StatusOK, loginResponse{
		Token:       session.Token,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
	})
}

type userUpdateRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

type userUpdateResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// handleUserUpdate changes the authenticated user's name and/or password.
// Absent fields are left untouched.
func (s *Server) handleUserUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.writeError(w, errors.ErrUnauthorized)
		return
	}

	req, err := decodeBody[userUpdateRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Name == nil && req.Password == nil {
		s.writeError(w, fmt.Errorf("%w: nothing to update", errors.ErrBadRequest))
		return
	}

	if req.Name != nil {
		if err := auth.ValidateName(*req.Name); err != nil {
			s.writeError(w, fmt.Errorf("%w: %w", errors.ErrBadRequest, err))
			return
		}
	}

	var hash *string
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			s.writeError(w, fmt.Errorf("%w: %w", errors.ErrBadRequest, err))
			return
		}
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.writeError(w, err)
			return
		}
		hash = &hashed
	}

	user, err := s.users.Update(userID, req.Name, hash)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("User updated", "user", user.ID, "renamed", req.Name != nil)
	s.writeJSON(w, http.StatusOK, userUpdateResponse{
		ID:        user.ID,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

type statusSetRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleStatusSet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFromContext(r.Context())
	if !ok {
		s.writeError(w, errors.ErrUnauthorized)
		return
	}

	req, err := decodeBody[statusSetRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	status, err := domain.ParseOnlineStatus(req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.coord.SetPresence(userID, status); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatusGet(w http.ResponseWriter, r *http.Request) {
	target, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid user id", errors.ErrBadRequest))
		return
	}

	status := s.coord.GetPresence(target)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"user":   target.String(),
		"status": status.String(),
	})
}
