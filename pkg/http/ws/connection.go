// Package ws provides the connection-level websocket transport: the
// read/write pump pattern and a bounded per-connection send queue. It knows
// nothing about match semantics — that lives in internal/room and
// internal/dispatcher.
package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Message is the wire envelope for both inbound commands and outbound
// events: a type tag plus an opaque payload.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection wraps one accepted websocket connection with a bounded
// outbound queue so a slow reader cannot block the sender.
type Connection struct {
	ID     uuid.UUID
	UserID uuid.UUID

	conn   *websocket.Conn
	send   chan []byte
	logger zerolog.Logger

	onMessage func(Message)
	onClose   func(*Connection)
}

// NewConnection wraps a raw websocket connection. queueCap bounds the
// outbound send channel; exceeding it is treated as a dead connection.
func NewConnection(conn *websocket.Conn, userID uuid.UUID, queueCap int, logger zerolog.Logger) *Connection {
	return &Connection{
		ID:     uuid.New(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, queueCap),
		logger: logger,
	}
}

// OnMessage registers the inbound message handler.
func (c *Connection) OnMessage(fn func(Message)) { c.onMessage = fn }

// OnClose registers a callback invoked once the connection's pumps exit.
func (c *Connection) OnClose(fn func(*Connection)) { c.onClose = fn }

// Outbound exposes the send queue for tests and alternate write loops.
func (c *Connection) Outbound() <-chan []byte { return c.send }

// Enqueue attempts a non-blocking send. It returns false if the outbound
// queue is full, signalling the caller to treat this connection as dead.
func (c *Connection) Enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close terminates the underlying socket.
func (c *Connection) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// ReadPump pumps inbound frames until the connection errors or closes. Must
// be run in its own goroutine; returns when the connection is done.
func (c *Connection) ReadPump() {
	defer func() {
		if c.onClose != nil {
			c.onClose(c)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("discarding malformed inbound frame")
			continue
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// WritePump drains the outbound queue to the socket and sends periodic
// pings. Must be run in its own goroutine.
func (c *Connection) WritePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
