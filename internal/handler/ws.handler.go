package handler

import (
	"net/http"
	"slices"
	"time"

	"spark-service/internal/ws"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait    = 60 * time.Second
	maxReadSize = 4096
)

type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger,
	}
}

// Serve upgrades an authenticated request and keeps reading until the
// client goes away. Frames from the client only refresh liveness.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied to the client
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", uid), zap.Error(err))
		return
	}

	c := h.hub.Add(uid, conn)
	defer h.hub.Remove(c)

	conn.SetReadLimit(maxReadSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		c.Touch()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", zap.String("user_id", uid), zap.Error(err))
			}
			return
		}
		c.Touch()
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
