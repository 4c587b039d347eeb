package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one browser tab listening for refetch notices. The browser never
// sends anything meaningful, so the connection is write-only.
type Client struct {
	hub       *Hub
	conn      *ws.Conn
	userID    string
	expiresAt time.Time
	send      chan []byte
}

// NewClient ties conn to userID. A non-zero expiresAt closes the socket when
// the login session ends so the tab falls back to the login screen.
func NewClient(hub *Hub, conn *ws.Conn, userID string, expiresAt time.Time) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		userID:    userID,
		expiresAt: expiresAt,
		send:      make(chan []byte, sendBufferSize),
	}
}

// Run blocks until the peer goes away, the session expires or ctx ends.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	// The read side must outlive expiry so the close handshake can finish.
	ctx = c.conn.CloseRead(ctx)

	var expired <-chan time.Time
	if !c.expiresAt.IsZero() {
		timer := time.NewTimer(time.Until(c.expiresAt))
		defer timer.Stop()
		expired = timer.C
	}

	if c.deliver(ctx, expired) {
		c.conn.Close(ws.StatusPolicyViolation, "session expired")
		return
	}
	c.conn.Close(ws.StatusNormalClosure, "")
}

// deliver writes queued messages and keepalive pings until a write fails,
// ctx is done or expired fires. It reports whether the session expired.
func (c *Client) deliver(ctx context.Context, expired <-chan time.Time) bool {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return false
			}
			if err := c.write(ctx, msg); err != nil {
				c.hub.logger.Debug("write failed", "user_id", c.userID, "error", err)
				return false
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return false
			}
		case <-expired:
			c.hub.logger.Debug("session expired", "user_id", c.userID)
			return true
		case <-ctx.Done():
			return false
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
