package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"chatd/realtime"
)

// Handler upgrades HTTP requests to websocket connections and hands each one
// to its own connection actor.
type Handler struct {
	coord    *realtime.Coordinator
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(coord *realtime.Coordinator, log *slog.Logger) *Handler {
	return &Handler{
		coord: coord,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Authentication happens in-protocol via the Auth frame, so the
			// upgrade itself is open. Browser clients still need CORS-style
			// origin policy at the proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn := newConn(sock, h.coord, h.log)
	h.log.Debug("Websocket connection accepted", "remote", r.RemoteAddr, "conn", conn.id)
	go conn.run()
}
