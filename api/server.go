// Package api exposes the REST surface of the chat server. Every mutating
// route except register and login sits behind the JWT middleware; realtime
// traffic goes through the websocket endpoint instead.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"chatd/auth"
	"chatd/errors"
	"chatd/realtime"
	"chatd/repositories"
	"chatd/ws"
)

const apiName = "chatd"

type Server struct {
	log      *slog.Logger
	coord    *realtime.Coordinator
	users    repositories.IUserRepository
	sessions repositories.ISessionRepository
	channels repositories.IChannelRepository
	messages repositories.IMessageRepository
	search   repositories.ISearchRepository
	issuer   *auth.TokenIssuer
	wsHandle http.Handler
	version  string
}

func NewServer(log *slog.Logger, coord *realtime.Coordinator,
	users repositories.IUserRepository, sessions repositories.ISessionRepository,
	channels repositories.IChannelRepository, messages repositories.IMessageRepository,
	search repositories.ISearchRepository, issuer *auth.TokenIssuer, version string) *Server {
	return &Server{
		log:      log,
		coord:    coord,
		users:    users,
		sessions: sessions,
		channels: channels,
		messages: messages,
		search:   search,
		issuer:   issuer,
		wsHandle: ws.NewHandler(coord, log),
		version:  version,
	}
}

// Routes assembles the full HTTP mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	authed := auth.Middleware(s.issuer)

	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("POST /user/register", s.handleRegister)
	mux.HandleFunc("POST /user/login", s.handleLogin)
	mux.Handle("GET /ws", s.wsHandle)

	mux.Handle("POST /user/update", authed(http.HandlerFunc(s.handleUserUpdate)))
	mux.Handle("POST /textchannel/create", authed(http.HandlerFunc(s.handleChannelCreate)))
	mux.Handle("GET /textchannel/list", authed(http.HandlerFunc(s.handleChannelList)))
	mux.Handle("DELETE /textchannel/{id}", authed(http.HandlerFunc(s.handleChannelDelete)))

	mux.Handle("POST /message/send", authed(http.HandlerFunc(s.handleMessageSend)))
	mux.Handle("GET /message/history", authed(http.HandlerFunc(s.handleMessageHistory)))
	mux.Handle("GET /message/search", authed(http.HandlerFunc(s.handleMessageSearch)))

	mux.Handle("POST /user/status/set", authed(http.HandlerFunc(s.handleStatusSet)))
	mux.Handle("GET /user/status/{id}", authed(http.HandlerFunc(s.handleStatusGet)))

	return mux
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"name":    apiName,
		"version": s.version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Failed to encode response", "error", err)
	}
}

// writeError logs the full failure and replies with the public kind only.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
	} else {
		s.log.Debug("Request rejected", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": errors.Kind(err).Error()})
}

func decodeBody[T any](r *http.Request) (T, error) {
	var body T
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, errors.ErrBadRequest
	}
	return body, nil
}
