package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cashflowpro/cashflowpro/internal/activity"
	"github.com/cashflowpro/cashflowpro/internal/security/auth"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// ActivityHandler streams record-change events over WebSocket. Browsers
// cannot set an Authorization header on the upgrade request, so the
// token rides in a query parameter instead.
type ActivityHandler struct {
	hub            *activity.Hub
	tokens         *auth.TokenManager
	allowedOrigins []string
	logger         *slog.Logger
}

// NewActivityHandler creates a new activity feed handler
func NewActivityHandler(hub *activity.Hub, tokens *auth.TokenManager, allowedOrigins []string, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{
		hub:            hub,
		tokens:         tokens,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

func (h *ActivityHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/activity?token=...
func (h *ActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Debug("websocket token rejected", slog.String("error", err.Error()))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	events, cancel := h.hub.Subscribe(claims.UserID)
	defer cancel()

	h.logger.Debug("activity feed opened", slog.String("user_id", claims.UserID))

	// Drain the read side so close frames and ping replies are processed.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteJSON(evt); err != nil {
				h.logger.Debug("activity feed closed",
					slog.String("user_id", claims.UserID),
					slog.String("reason", err.Error()),
				)
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
