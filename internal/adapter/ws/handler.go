// Package ws pushes realtime roadmap events to connected clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn is one client connection owned by a user.
type conn struct {
	userID string
	ws     *websocket.Conn
	send   chan []byte
	cancel context.CancelFunc
}

// Hub tracks connections per user and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	users   map[string]map[*conn]struct{}
	origins []string
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		users: make(map[string]map[*conn]struct{}),
	}
}

// AllowOrigins sets the cross-origin hosts allowed to open a connection.
// Entries may be full origins ("https://app.example.com") or host patterns
// ("*.example.com"). Same-host handshakes are always accepted.
func (h *Hub) AllowOrigins(origins ...string) {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		patterns = append(patterns, o)
	}
	h.origins = patterns
}

// Serve upgrades the request and registers the connection for userID. It
// returns once the connection is registered; reading and writing continue in
// background goroutines until the client disconnects or ctx of r ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "origin", r.Header.Get("Origin"), "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{userID: userID, ws: ws, send: make(chan []byte, sendBuffer), cancel: cancel}
	h.add(c)
	slog.Info("websocket connected", "user_id", userID, "remote", r.RemoteAddr)

	go h.writeLoop(ctx, c)
	go func() {
		defer h.remove(c)
		// Clients only receive; reads detect disconnects and consume control frames.
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) writeLoop(ctx context.Context, c *conn) {
	defer func() { _ = c.ws.Close(websocket.StatusNormalClosure, "") }()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "user_id", c.userID, "error", err)
				h.remove(c)
				return
			}
		}
	}
}

// BroadcastToUser marshals payload and queues it for every connection of userID.
// Slow connections whose buffer is full drop the event.
func (h *Hub) BroadcastToUser(_ context.Context, userID, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	data, err := json.Marshal(Message{Type: eventType, Payload: raw})
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		select {
		case c.send <- data:
		default:
			slog.Warn("websocket send buffer full, dropping event", "user_id", userID, "type", eventType)
		}
	}
}

// ConnectionCount returns the number of active connections of userID.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, conns := range h.users {
		for c := range conns {
			c.cancel()
		}
		delete(h.users, uid)
	}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[c.userID]
	if !ok {
		set = make(map[*conn]struct{})
		h.users[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.users[c.userID]
	if _, ok := set[c]; !ok {
		return
	}
	c.cancel()
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
	slog.Info("websocket disconnected", "user_id", c.userID)
}
