package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"spark-service/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Connection struct {
	conn     Conn
	UserID   string
	mu       sync.Mutex // gorilla allows one concurrent writer
	lastSeen atomic.Int64
}

func (c *Connection) Touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Connection) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
}

// Message is the frame pushed to clients.
type Message struct {
	Type   string         `json:"type"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
	SentAt time.Time      `json:"sent_at"`
}

type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{} // userID -> set
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*Connection]struct{}),
		logger:      logger,
	}
}

func (h *Hub) Add(userID string, conn Conn) *Connection {
	c := &Connection{conn: conn, UserID: userID}
	c.Touch()

	h.mu.Lock()
	if _, ok := h.connections[userID]; !ok {
		h.connections[userID] = make(map[*Connection]struct{})
	}
	h.connections[userID][c] = struct{}{}
	n := len(h.connections[userID])
	h.mu.Unlock()

	h.logger.Debug("ws connected", zap.String("user_id", userID), zap.Int("user_conns", n))
	return c
}

func (h *Hub) Remove(c *Connection) {
	h.mu.Lock()
	if conns, ok := h.connections[c.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.connections, c.UserID)
		}
	}
	h.mu.Unlock()

	_ = c.conn.Close()
	h.logger.Debug("ws disconnected", zap.String("user_id", c.UserID))
}

func (h *Hub) snapshot(userID string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Connection
	if userID != "" {
		for c := range h.connections[userID] {
			out = append(out, c)
		}
		return out
	}
	for _, conns := range h.connections {
		for c := range conns {
			out = append(out, c)
		}
	}
	return out
}

func toMessage(n domain.Notification) Message {
	return Message{Type: n.Type, Title: n.Title, Body: n.Body, Data: n.Data, SentAt: time.Now().UTC()}
}

// Send pushes n to every connection of userID and returns how many received it.
func (h *Hub) Send(userID string, n domain.Notification) int {
	return h.deliver(h.snapshot(userID), toMessage(n))
}

// Broadcast pushes n to every open connection.
func (h *Hub) Broadcast(n domain.Notification) int {
	return h.deliver(h.snapshot(""), toMessage(n))
}

func (h *Hub) deliver(conns []*Connection, msg Message) int {
	sent := 0
	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			h.logger.Warn("ws send failed", zap.String("user_id", c.UserID), zap.Error(err))
			h.Remove(c)
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

// Heartbeat pings every connection each interval and drops the ones that
// have not answered for two intervals. It returns when ctx is done.
func (h *Hub) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep(interval)
		}
	}
}

func (h *Hub) sweep(interval time.Duration) {
	for _, c := range h.snapshot("") {
		if time.Since(c.LastSeen()) > 2*interval {
			h.Remove(c)
			continue
		}
		if err := c.ping(); err != nil {
			h.Remove(c)
		}
	}
}

// CloseAll drops every connection, used on shutdown.
func (h *Hub) CloseAll() {
	for _, c := range h.snapshot("") {
		h.Remove(c)
	}
}
