package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"snapfix-server/types"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 256
)

var ErrClientBufferFull = errors.New("client send buffer is full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authentication is by token, and CORS is enforced on the HTTP routes.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and registers the client with the hub.
func ServeWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, principal types.Principal) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn("❌ websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		Hub:       hub,
		Principal: principal,
		Conn:      conn,
		Send:      make(chan []byte, sendBufferSize),
	}
	select {
	case hub.Register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("❌ websocket read error", zap.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.Hub.log.Debug("ignoring malformed message", zap.Error(err))
			continue
		}

		handler, exists := c.Hub.MessageHandlers[message.Type]
		if !exists {
			c.Hub.log.Debug("unknown message type", zap.String("type", message.Type))
			continue
		}
		if err := handler(c, &message); err != nil {
			c.Hub.log.Warn("❌ error handling message", zap.String("type", message.Type), zap.Error(err))
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a message for this client through the hub without blocking.
func (c *Client) SendMessage(message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if !c.Hub.enqueue(delivery{client: c, data: data}) {
		return ErrClientBufferFull
	}
	return nil
}
