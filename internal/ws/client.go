package ws

import (
	"encoding/json"
	"sync"
	"time"

	"taprealm/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	sendBuffer = 64
)

type Client struct {
	UserID  int64
	SquadID *int64
	Conn    *websocket.Conn
	Send    chan []byte

	Hub *Hub

	mu     sync.Mutex
	closed bool
}

func NewClient(userID int64, squadID *int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID:  userID,
		SquadID: squadID,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		Hub:     hub,
	}
}

// Run registers the client and blocks until the connection drops. initial
// is queued right after the ready handshake.
func (c *Client) Run(initial []byte) {
	c.Hub.Register(c)
	go c.writePump()

	if msg, err := encode(MsgReady, nil); err == nil {
		c.trySend(msg)
	}
	if initial != nil {
		c.trySend(initial)
	}

	c.readPump()
}

// trySend queues msg without blocking; false means the buffer is full.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// read
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.handle(raw)
	}
}

// handle answers client frames. Game actions go through the HTTP API.
func (c *Client) handle(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.reply(MsgError, ErrorPayload{Message: "invalid message"})
		return
	}
	switch env.Type {
	case MsgPing:
		c.reply(MsgPong, nil)
	default:
		c.reply(MsgError, ErrorPayload{Message: "unknown message type"})
	}
}

func (c *Client) reply(msgType string, payload interface{}) {
	msg, err := encode(msgType, payload)
	if err != nil {
		return
	}
	c.trySend(msg)
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "user_id", c.UserID, "error", err)
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
