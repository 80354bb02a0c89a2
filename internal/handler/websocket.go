package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/insider-one/notification-dispatcher/internal/domain"
	"github.com/insider-one/notification-dispatcher/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHub fans channel results out to subscribed websocket clients
type WebSocketHub struct {
	clients    map[*WebSocketClient]bool
	broadcast  chan *ResultUpdate
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	done       chan struct{}
	logger     *slog.Logger
	mu         sync.RWMutex
}

// WebSocketClient represents a WebSocket client connection
type WebSocketClient struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan []byte
	id   string

	mu     sync.RWMutex
	filter *ClientFilter
}

// ClientFilter narrows the results a client receives. Every non-empty list
// must match.
type ClientFilter struct {
	RequestIDs []uuid.UUID      `json:"request_ids,omitempty"`
	Channels   []domain.Channel `json:"channels,omitempty"`
}

// ResultUpdate is the message pushed for every completed channel send
type ResultUpdate struct {
	Type       string                    `json:"type"`
	RequestID  uuid.UUID                 `json:"request_id"`
	Result     domain.NotificationResult `json:"result"`
	DurationMs int64                     `json:"duration_ms"`
	Timestamp  time.Time                 `json:"timestamp"`
}

// SubscribeMessage represents a subscription request from client
type SubscribeMessage struct {
	Action string       `json:"action"`
	Filter ClientFilter `json:"filter"`
}

// NewWebSocketHub creates a new WebSocketHub
func NewWebSocketHub(logger *slog.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan *ResultUpdate, 256),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done. A hub
// cannot be restarted.
func (h *WebSocketHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("websocket client connected", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", "client_id", client.id)

		case update := <-h.broadcast:
			message, err := json.Marshal(update)
			if err != nil {
				h.logger.Error("failed to marshal result update", "error", err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				if client.shouldReceive(update) {
					select {
					case client.send <- message:
					default:
						// slow client, drop
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastResult queues a channel result for every matching client. It
// never blocks the dispatch that produced it.
func (h *WebSocketHub) BroadcastResult(event service.ResultEvent) {
	update := &ResultUpdate{
		Type:       "channel_result",
		RequestID:  event.RequestID,
		Result:     event.Result,
		DurationMs: event.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}

	select {
	case h.broadcast <- update:
	default:
		h.logger.Warn("broadcast channel full, dropping update")
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *WebSocketClient) setFilter(filter *ClientFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = filter
}

func (c *WebSocketClient) shouldReceive(update *ResultUpdate) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.filter == nil {
		return true
	}
	if len(c.filter.RequestIDs) > 0 && !slices.Contains(c.filter.RequestIDs, update.RequestID) {
		return false
	}
	if len(c.filter.Channels) > 0 && !slices.Contains(c.filter.Channels, update.Result.Channel) {
		return false
	}
	return true
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub *WebSocketHub
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleWebSocket upgrades the connection and streams channel results
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Error("failed to upgrade websocket", "error", err)
		return
	}

	client := &WebSocketClient{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.New().String(),
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump handles subscribe and unsubscribe messages from the peer
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("websocket error", "error", err)
			}
			return
		}

		var subMsg SubscribeMessage
		if err := json.Unmarshal(message, &subMsg); err != nil {
			continue
		}

		switch subMsg.Action {
		case "subscribe":
			filter := subMsg.Filter
			c.setFilter(&filter)
			c.hub.logger.Info("client subscribed with filter",
				"client_id", c.id,
				"request_ids", len(filter.RequestIDs),
				"channels", filter.Channels,
			)
		case "unsubscribe":
			c.setFilter(nil)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
