package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lance13c/shopassist/internal/logging"
)

const dialTimeout = 2 * time.Second

// Client is a Sink that posts messages to a running hub over its websocket
// endpoint. It connects on first use and again after the connection drops.
type Client struct {
	url    string
	dialer websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	wg   sync.WaitGroup
}

// NewClient creates a client for the hub at url, e.g. ws://127.0.0.1:8787/ws
func NewClient(url string) *Client {
	return &Client{
		url:    url,
		dialer: websocket.Dialer{HandshakeTimeout: dialTimeout},
	}
}

// PostMessage sends msg to the hub, which relays it to the other clients
func (c *Client) PostMessage(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", c.url, err)
		}
		logging.Debug("Connected to message hub %s", c.url)
		c.conn = conn
		c.wg.Add(1)
		go c.readLoop(conn)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(msg); err != nil {
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("failed to send %s message: %w", msg.Action, err)
	}
	return nil
}

// readLoop discards hub broadcasts; reading keeps ping/pong and close
// handling alive, and marks the connection gone when it ends
func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			return
		}
	}
}

// Close drops the connection, if any, and waits for its reader to stop
func (c *Client) Close() error {
	c.mu.Lock()
	var err error
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	return err
}
