// Package realtime pushes per-user events to connected websocket clients.
//
// The app keeps its pantry screen live: when an item is added from one
// device (or deleted from another), every open session of the same user gets
// the change. Events never cross users.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 16
)

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks open connections per user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a Hub. Browser connections must come from one of
// allowedOrigins; requests without an Origin header (mobile apps) are
// always accepted. An empty list accepts any origin.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Serve upgrades the request and streams userID's events until the client
// disconnects. It blocks for the life of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go c.writePump()

	// Clients never send anything meaningful; reading just detects closes
	// and answers control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

// Publish sends payload to every connection of userID. A client whose
// buffer is full misses the event rather than blocking the publisher.
func (h *Hub) Publish(userID string, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode realtime event", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping realtime event for slow client", slog.String("user_id", userID))
		}
	}
}

// Subscribers returns the number of open connections for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.mu.Unlock()
}

// unregister removes c and closes its send channel, which stops the write
// pump. Publish holds the read lock while sending, so it never sees a
// closed channel.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set := h.clients[c.userID]; set != nil {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// writePump is the only goroutine that writes to conn.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
