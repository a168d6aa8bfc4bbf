package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 54 * time.Second

	sendBuffer = 256
)

// Client is one websocket peer, either a backend producer or a renderer.
type Client struct {
	id     string
	role   Role
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

func newClient(server *Server, conn *websocket.Conn, role Role) *Client {
	return &Client{
		id:     uuid.NewString(),
		role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		server: server,
	}
}

// readPump reads frames from the peer and routes them by role.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.lifecycle.Context().Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Printf("[Gateway] read from %s client %s: %v", c.role, c.id, err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.server.logger.Printf("[Gateway] malformed frame from %s client %s: %v", c.role, c.id, err)
			c.sendError("malformed frame")
			continue
		}

		switch c.role {
		case RoleBackend:
			c.server.handleBackendMessage(msg)
		case RoleRenderer:
			c.server.handleRendererMessage(msg)
		}
	}
}

// sendError pushes an error frame back to the peer. Dropped when the send
// buffer is full, like every other outbound frame.
func (c *Client) sendError(message string) {
	payload, err := encodeMessage(msgError, errorPayload{Message: message})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
