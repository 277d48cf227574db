package websocket

import (
	"sync"
	"time"

	"ece-marketplace/internal/domain"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Connection is one live feed socket. gorilla/websocket allows a single
// concurrent writer, so every write goes through mu.
type Connection struct {
	conn      *websocket.Conn
	userID    string
	auctionID string

	mu sync.Mutex
}

var _ domain.WebSocketConnection = (*Connection)(nil)

func NewConnection(conn *websocket.Conn, userID, auctionID string) *Connection {
	return &Connection{conn: conn, userID: userID, auctionID: auctionID}
}

// Send writes pre-encoded JSON as is and encodes anything else.
func (c *Connection) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if raw, ok := message.([]byte); ok {
		return c.conn.WriteMessage(websocket.TextMessage, raw)
	}
	return c.conn.WriteJSON(message)
}

func (c *Connection) ReadJSON(v interface{}) error {
	return c.conn.ReadJSON(v)
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

func (c *Connection) UserID() string {
	return c.userID
}

func (c *Connection) AuctionID() string {
	return c.auctionID
}
