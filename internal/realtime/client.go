package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer
	maxFrameSize = 4096

	// Outbound frame buffer per connection
	sendBufferSize = 256
)

// wsConn is the subset of *websocket.Conn the client needs; tests substitute
// an in-memory implementation.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client owns one live transport connection for its lifetime. It starts
// unauthenticated; the first valid authenticate frame binds a user and
// registers the connection.
type Client struct {
	id          string
	gateway     *Gateway
	conn        wsConn
	send        chan []byte
	done        chan struct{}
	connectedAt time.Time

	// userID is zero until the authenticate frame is processed. The read
	// goroutine writes it while the write pump's log paths read it, so access
	// goes through the atomic.
	userID atomic.Uint64

	closed int32 // atomic; guards closing done exactly once

	// cleanupOnce guarantees the closed-state cleanup (unregister + presence
	// transition) runs exactly once, whichever path triggers it.
	cleanupOnce sync.Once
}

func newClient(gateway *Gateway, conn wsConn) *Client {
	return &Client{
		id:          uuid.New().String(),
		gateway:     gateway,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// UserID returns the authenticated user, zero if the authenticate frame has
// not been processed yet.
func (c *Client) UserID() uint {
	return uint(c.userID.Load())
}

// bindUser records the authenticated user for this connection.
func (c *Client) bindUser(userID uint) {
	c.userID.Store(uint64(userID))
}

// ConnectedAt returns when the transport was accepted.
func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// Authenticated reports whether a user is bound to this connection.
func (c *Client) Authenticated() bool {
	return c.userID.Load() != 0
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// markClosed flips the closed flag and signals done, once.
func (c *Client) markClosed() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.done)
	}
}

// Close tears the connection down from the server side. The read pump
// unblocks on the closed socket and runs the usual cleanup path.
func (c *Client) Close() {
	c.markClosed()
	if err := c.conn.Close(); err != nil {
		slog.Debug("Error closing connection", "clientID", c.id, "error", err)
	}
}

// SendFrame queues an outbound frame. Frames are written to the transport in
// queue order, giving FIFO delivery per connection. A full buffer closes the
// connection rather than blocking the caller.
func (c *Client) SendFrame(frame Frame) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	data, err := frame.Encode()
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.UserID())
		c.Close()
		return ErrClientDisconnected
	}
}

func (c *Client) readPump() {
	defer func() {
		c.markClosed()
		c.gateway.dropClient(c)
		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.UserID(), "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.UserID(), "error", err)
			}
			return
		}

		// One bad frame must not terminate the session; handleFrame contains
		// all per-frame errors.
		c.gateway.handleFrame(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("Error writing frame", "clientID", c.id, "userID", c.UserID(), "error", err)
				// Unblock the read pump immediately so cleanup runs now
				// instead of at the next read deadline.
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "userID", c.UserID(), "error", err)
				c.Close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
