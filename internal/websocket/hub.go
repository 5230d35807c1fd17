// Package websocket broadcasts pipeline step events to connected clients so
// a dashboard can follow a session's transformations as they are applied.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event message types.
const (
	TypeConnection  = "connection"
	TypeStepApplied = "step:applied"
	TypeSessionGone = "session:closed"
)

// Event is one message pushed to clients. Session scopes the event; clients
// subscribed to a different session do not receive it.
type Event struct {
	Type      string    `json:"type"`
	Session   string    `json:"session,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn    *websocket.Conn
	session string
	send    chan []byte
}

// Hub tracks connected clients and fans events out to them. Run must be
// started before Serve accepts connections.
type Hub struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	events     chan Event
	mu         sync.RWMutex
	count      int
}

// NewHub creates a hub. A nil logger falls back to the default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With(slog.String("component", "websocket.hub")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan Event, 64),
	}
}

// Run processes registrations and event fan-out until the context ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.count = len(h.clients)
			h.mu.Unlock()
			h.greet(c)
			h.logger.Debug("client connected", slog.String("session", c.session))
		case c := <-h.unregister:
			h.drop(c)
		case event := <-h.events:
			h.dispatch(event)
		}
	}
}

// Broadcast queues an event for delivery. It never blocks the pipeline; if
// the hub's buffer is full the event is dropped.
func (h *Hub) Broadcast(event Event) {
	event.Timestamp = time.Now().UTC()
	select {
	case h.events <- event:
	default:
		h.logger.Warn("event dropped, hub buffer full", slog.String("type", event.Type))
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) dispatch(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", slog.Any("error", err))
		return
	}
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if event.Session == "" || c.session == "" || c.session == event.Session {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			// Slow consumer; disconnect instead of blocking the hub.
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
		h.count = len(h.clients)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		c.conn.Close()
		delete(h.clients, c)
	}
	h.count = 0
}

// Serve upgrades an HTTP request to a websocket subscription. The optional
// "session" query parameter scopes the client to one session's events.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		conn:    conn,
		session: r.URL.Query().Get("session"),
		send:    make(chan []byte, 16),
	}
	h.register <- c

	go c.writeLoop()
	go c.readLoop(h)
}

// greet runs on the hub goroutine, which owns every close of a client's send
// channel, so the write cannot race a disconnect.
func (h *Hub) greet(c *client) {
	greeting, _ := json.Marshal(Event{
		Type:      TypeConnection,
		Session:   c.session,
		Timestamp: time.Now().UTC(),
	})
	select {
	case c.send <- greeting:
	default:
	}
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop discards inbound frames; the stream is one-way. It exists to
// notice closed connections promptly.
func (c *client) readLoop(h *Hub) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.unregister <- c
			return
		}
	}
}
