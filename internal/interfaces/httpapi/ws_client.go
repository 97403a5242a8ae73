package httpapi

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = wsPongWait * 9 / 10
	wsSendBufferSize = 64
)

type wsClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan serverMessage
}

func newWSClient(id string, conn *websocket.Conn, hub *Hub) *wsClient {
	return &wsClient{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan serverMessage, wsSendBufferSize),
	}
}

// trySend never blocks; a full buffer means the viewer is too slow and
// the message is dropped. A closed send channel means the hub already
// let go of this client.
func (c *wsClient) trySend(msg serverMessage) (delivered bool) {
	defer func() {
		if recover() != nil {
			delivered = false
		}
	}()

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readPump discards inbound frames; viewers are read-only. It exists to
// service pong frames and to notice the peer going away.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, open := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !open {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := sonic.Marshal(msg)
			if err != nil {
				c.hub.logger.Warn("encode websocket message failed", "client_id", c.id, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
