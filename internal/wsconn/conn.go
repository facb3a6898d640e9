// Package wsconn adapts gorilla/websocket connections into the registry's
// Handle interface, with a read pump and write pump per connection: the read
// goroutine feeds the Router, the write goroutine drains a buffered send
// channel back to the socket, and ping/pong keepalive runs on the write
// side.
package wsconn

import (
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vldr/Relay/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds a single frame. The relay is payload-agnostic,
	// so this is sized for arbitrary binary payloads rather than chat text.
	maxMessageSize = 1 << 20
)

type outbound struct {
	messageType int
	data        []byte
}

// Conn is the Connection Handle: one per live WebSocket, implementing
// registry.Handle. It is opaque to the registry beyond Send*/Close.
type Conn struct {
	id     string
	ws     *websocket.Conn
	send   chan outbound
	router *protocol.Router
	log    *slog.Logger
}

// New wraps an already-upgraded *websocket.Conn. id is a display/debugging
// label only; the registry identifies connections by pointer identity, not
// by this string.
func New(id string, ws *websocket.Conn, router *protocol.Router, log *slog.Logger) *Conn {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Conn{
		id:     id,
		ws:     ws,
		send:   make(chan outbound, 256),
		router: router,
		log:    log,
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) SendText(data []byte) error {
	return c.enqueue(websocket.TextMessage, data)
}

func (c *Conn) SendBinary(data []byte) error {
	return c.enqueue(websocket.BinaryMessage, data)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// enqueue is the non-blocking send the concurrency model requires: a full
// buffer means a slow or dead peer, and the frame is dropped rather than
// stalling the goroutine that is sending to it.
func (c *Conn) enqueue(messageType int, data []byte) error {
	select {
	case c.send <- outbound{messageType: messageType, data: data}:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

// Start launches the read and write pumps. The registry has no notion of
// this connection until it issues a create or join frame; Start does not
// register anything itself.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.router.HandleClose(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("read error", "connId", c.id, "error", err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.router.HandleText(c, data)
		case websocket.BinaryMessage:
			c.router.HandleBinary(c, data)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(msg.messageType, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
