// Package ws pushes lifecycle updates to connected dashboards, grouped by
// company so one tenant never sees another tenant's traffic.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Update types broadcast to dashboards.
const (
	UpdateRequestSubmitted = "REQUEST_SUBMITTED"
	UpdateRequestApproved  = "REQUEST_APPROVED"
	UpdateRequestRejected  = "REQUEST_REJECTED"
	UpdateAssetReturned    = "ASSET_RETURNED"
)

// Update is the wire message.
type Update struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connections per company.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]map[*client]bool
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHub(allowedOrigin string, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		logger: logger.Named("ws"),
	}
}

// Register upgrades the connection and subscribes it to the company's feed.
func (h *Hub) Register(company string, w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	if h.clients[company] == nil {
		h.clients[company] = make(map[*client]bool)
	}
	h.clients[company][c] = true
	h.mu.Unlock()

	go h.writePump(company, c)
	go h.readPump(company, c)

	h.logger.Info("dashboard connected", zap.String("company", company))
	return nil
}

// Broadcast sends the update to every connection of the company. Slow
// clients are dropped rather than blocking the caller.
func (h *Hub) Broadcast(company string, update Update) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("marshal update", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[company] {
		select {
		case c.send <- data:
		default:
			h.drop(company, c)
		}
	}
}

func (h *Hub) writePump(company string, c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.mu.Lock()
			h.drop(company, c)
			h.mu.Unlock()
			// Closing unblocks readPump, which would otherwise keep a
			// connection alive that no longer receives broadcasts.
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.Close()
}

// readPump discards inbound frames; its job is noticing the peer go away.
func (h *Hub) readPump(company string, c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.mu.Lock()
			h.drop(company, c)
			h.mu.Unlock()
			return
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(company string, c *client) {
	if clients, ok := h.clients[company]; ok {
		if clients[c] {
			delete(clients, c)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.clients, company)
		}
	}
}
