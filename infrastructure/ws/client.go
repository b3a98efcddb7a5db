package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client represents one connected websocket peer. Its id is the connection
// handle used across the coordination core.
type Client struct {
	id      string
	handler *Handler
	conn    *websocket.Conn
	send    chan []byte
	dead    atomic.Bool
	once    sync.Once
}

// push queues an outbound frame without blocking. A full buffer means the
// peer stopped draining; the client is marked dead and handed to hub.drop,
// which removes it from the fan-out maps before closing the channel. push
// itself never closes the channel: callers hold the hub read lock, so a
// close here could race a concurrent push on another goroutine.
func (c *Client) push(data []byte) {
	if c.dead.Load() {
		return
	}
	select {
	case c.send <- data:
	default:
		if c.dead.CompareAndSwap(false, true) {
			c.handler.log.Warn("Send buffer full, dropping connection", "conn", c.id)
			go c.handler.hub.drop(c)
		}
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// readPump pumps inbound frames from the websocket to the dispatcher.
// Its exit is the single place a disconnect is reported to the engine.
func (c *Client) readPump() {
	defer func() {
		c.handler.hub.drop(c)
		c.handler.engine.Disconnect(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.handler.log.Debug("Read error", "conn", c.id, "error", err)
			}
			return
		}
		c.handler.dispatch(c, message)
	}
}

// writePump pumps queued frames to the websocket connection and keeps the
// peer alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
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
