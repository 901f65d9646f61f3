package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lance13c/shopassist/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 16
)

// ErrHubStopped is returned when posting to a hub whose Run has returned
var ErrHubStopped = errors.New("message hub is stopped")

// Handler processes an inbound message from a websocket client
type Handler func(ctx context.Context, msg Message) error

// Hub is the websocket side of the shop-assistant channel. Every message
// posted to the hub reaches every connected client, and messages sent by
// clients are dispatched to the handler registered for their action.
type Hub struct {
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	broadcast  chan outbound
	done       chan struct{}
	started    sync.Once

	mu       sync.RWMutex
	handlers map[Action]Handler
	relayed  map[Action]bool
	count    int
}

// outbound is a broadcast payload; skip is the client it came from, if any
type outbound struct {
	payload []byte
	skip    *client
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. allowedOrigins lists extra origins that may connect;
// "*" allows any, and an empty list allows same-origin only.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outbound, sendBuffer),
		done:       make(chan struct{}),
		handlers:   make(map[Action]Handler),
		relayed:    make(map[Action]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
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

// Handle registers the handler for inbound messages with action
func (h *Hub) Handle(action Action, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[action] = handler
}

// Relay makes inbound messages with these actions reach every other client
// before their handler runs
func (h *Hub) Relay(actions ...Action) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, action := range actions {
		h.relayed[action] = true
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Done is closed once Run has returned and every client was let go
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run owns the client set until ctx ends. It must be called exactly once.
func (h *Hub) Run(ctx context.Context) {
	h.started.Do(func() { h.run(ctx) })
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	clients := make(map[*client]struct{})

	drop := func(c *client) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			h.setCount(len(clients))
		}
	}

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				drop(c)
			}
			logging.Debug("Message hub stopped")
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.setCount(len(clients))
			logging.Debug("Hub client connected (%d total)", len(clients))

		case c := <-h.unregister:
			drop(c)

		case out := <-h.broadcast:
			for c := range clients {
				if c == out.skip {
					continue
				}
				select {
				case c.send <- out.payload:
				default:
					logging.Warn("Hub client too slow, disconnecting")
					drop(c)
				}
			}
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// PostMessage broadcasts msg to every connected client
func (h *Hub) PostMessage(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return h.send(ctx, outbound{payload: payload})
}

func (h *Hub) send(ctx context.Context, out outbound) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- out:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("Hub client read error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn("Ignoring malformed hub message: %v", err)
			continue
		}
		h.dispatch(ctx, c, data, msg)
	}
}

func (h *Hub) dispatch(ctx context.Context, from *client, data []byte, msg Message) {
	h.mu.RLock()
	handler, ok := h.handlers[msg.Action]
	relay := h.relayed[msg.Action]
	h.mu.RUnlock()

	if relay {
		if err := h.send(ctx, outbound{payload: data, skip: from}); err != nil {
			logging.Warn("Failed to relay %s message: %v", msg.Action, err)
		}
	}

	if !ok {
		if !relay {
			logging.Debug("No handler for hub action %q", msg.Action)
		}
		return
	}
	if err := handler(ctx, msg); err != nil {
		logging.Error("Hub handler for %s failed: %v", msg.Action, err)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
