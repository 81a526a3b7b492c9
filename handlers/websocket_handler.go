package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/movie-tournament/live"
	"github.com/Dosada05/movie-tournament/services"
)

type WebSocketHandler struct {
	hub          *live.Hub
	queryService services.QueryService
	upgrader     websocket.Upgrader
}

// NewWebSocketHandler accepts connections from allowedOrigins; "*" allows any.
func NewWebSocketHandler(hub *live.Hub, qs services.QueryService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		queryService: qs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeCurrentMatch streams tally and match updates. The first message is a
// snapshot of the current match when one is open.
func (h *WebSocketHandler) ServeCurrentMatch(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to upgrade websocket connection", slog.Any("error", err))
		return
	}

	var initial [][]byte
	if view, err := h.queryService.CurrentMatch(r.Context()); err == nil {
		snapshot, err := json.Marshal(live.Message{Type: live.MessageSnapshot, Payload: view, RoomID: live.RoomCurrentMatch})
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to marshal match snapshot", slog.Any("error", err))
		} else {
			initial = append(initial, snapshot)
		}
	}
	h.hub.Attach(conn, live.RoomCurrentMatch, initial...)
}
