package delivery

import (
	"sync"
	"time"

	"chat-backend/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Client owns one WebSocket for its lifetime. Pushes are buffered through
// the send channel and drained by WritePump; inbound frames are handed to
// the event callback by ReadPump.
type Client struct {
	ConnectionID string
	UserID       string

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(conn *websocket.Conn, connectionID, userID string) *Client {
	return &Client{
		ConnectionID: connectionID,
		UserID:       userID,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
	}
}

// Close makes subsequent pushes report the connection as gone and tears down
// the socket. Safe to call from any goroutine, any number of times.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// Enqueue buffers a payload without blocking. A full buffer drops the frame;
// the client can recover missed messages through the history endpoint.
func (c *Client) Enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		logger.Error("Send buffer full for connection %s, dropping frame", c.ConnectionID)
	}
}

// ReadPump reads frames until the socket dies, passing each one to onEvent.
// onClose runs exactly once on the way out, after the socket is closed.
func (c *Client) ReadPump(onEvent func(raw []byte), onClose func()) {
	defer func() {
		c.Close()
		onClose()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on %s: %v", c.ConnectionID, err)
			}
			return
		}
		onEvent(raw)
	}
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Error("Write error on %s: %v", c.ConnectionID, err)
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
