package realtime

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound buffer per connection. A client that cannot drain this many
	// frames is treated as gone.
	sendBufferSize = 256
)

var ErrConnClosed = fmt.Errorf("connection closed")

// transport is the subset of *websocket.Conn the realtime layer writes to.
// Tests substitute a fabricated implementation.
type transport interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Conn is one live duplex connection owned by the registry entry of its
// identity. The identity is set at handshake and never changes.
type Conn struct {
	id       string
	identity string
	ws       transport

	send chan []byte
	done chan struct{}

	// alive is cleared by the liveness monitor on each tick and set again
	// by the pong handler. A connection still false on the next tick is
	// evicted.
	alive  atomic.Bool
	closed atomic.Bool
}

// NewConn wraps an accepted websocket connection for the given identity.
func NewConn(identity string, ws transport) *Conn {
	c := &Conn{
		id:       uuid.New().String(),
		identity: identity,
		ws:       ws,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Identity() string {
	return c.identity
}

// Alive reports whether a pong arrived since the last probe.
func (c *Conn) Alive() bool {
	return c.alive.Load()
}

// MarkAlive is called by the pong handler.
func (c *Conn) MarkAlive() {
	c.alive.Store(true)
}

// ClearAlive is called by the liveness monitor before sending a probe.
func (c *Conn) ClearAlive() {
	c.alive.Store(false)
}

// Ready reports whether the connection can still accept frames.
func (c *Conn) Ready() bool {
	return !c.closed.Load()
}

// Send queues a push for delivery. Delivery is best-effort: a full buffer
// means the peer has stopped draining, and the connection is closed rather
// than letting the sender block.
func (c *Conn) Send(p Push) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	data, err := p.Encode()
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		slog.Warn("send buffer full, closing connection", "connID", c.id, "identity", c.identity)
		c.Close()
		return ErrConnClosed
	}
}

// Ping writes a control probe frame. Safe to call concurrently with the
// write pump; gorilla serializes control frames internally.
func (c *Conn) Ping() error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// CloseUnauthorized sends the distinguished unauthorized close frame and
// tears the connection down. Used for handshake rejections only.
func (c *Conn) CloseUnauthorized() {
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(CloseUnauthorized, "Unauthorized")
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		slog.Debug("error writing unauthorized close", "connID", c.id, "error", err)
	}
	c.Close()
}

// Close marks the connection closed and releases the underlying transport.
// Safe to call more than once and to race with the liveness monitor.
func (c *Conn) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)
	if err := c.ws.Close(); err != nil {
		slog.Debug("error closing connection", "connID", c.id, "identity", c.identity, "error", err)
	}
}

// writePump drains the send buffer onto the wire. One pump per connection;
// it exits when the connection closes.
func (c *Conn) writePump() {
	for {
		select {
		case data := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("error writing message", "connID", c.id, "identity", c.identity, "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
