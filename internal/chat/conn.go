package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Time allowed to write a message to the peer.
const writeWait = 10 * time.Second

// transport is the subset of *websocket.Conn a Conn writes to.
type transport interface {
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is one live connection bound to a single authenticated user.
// Writes are serialized; the websocket allows only one concurrent writer.
type Conn struct {
	id uuid.UUID
	ws transport
	mu sync.Mutex
}

func NewConn(ws transport) *Conn {
	return &Conn{id: uuid.New(), ws: ws}
}

func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Send pushes one JSON event to the peer. A returned error marks the
// connection dead; callers are expected to unregister it.
func (c *Conn) Send(event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(event)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// ClosePolicyViolation sends a 1008 close frame and tears the
// connection down. Used for authentication failures only.
func (c *Conn) ClosePolicyViolation(reason string) {
	c.mu.Lock()
	frame := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
	c.mu.Unlock()
	_ = c.ws.Close()
}
