// Package live pushes tally and match updates to WebSocket clients.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// RoomCurrentMatch is the room every viewer of the open match joins.
const RoomCurrentMatch = "current_match"

const (
	MessageVoteCast    = "VOTE_CAST"
	MessageMatchOpened = "MATCH_OPENED"
	MessageMatchClosed = "MATCH_CLOSED"
	MessageSnapshot    = "SNAPSHOT"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	Room string

	mu     sync.Mutex
	closed bool
}

// closeSend closes the send channel once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// Enqueue queues msg without blocking. It reports false when the client is
// gone or its buffer is full.
func (c *Client) Enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

type roomMessage struct {
	room string
	data []byte
}

// Hub fans messages out to rooms. Serve must be running for broadcasts to
// be delivered; it implements suture.Service.
type Hub struct {
	rooms     map[string]map[*Client]bool
	mu        sync.RWMutex
	broadcast chan roomMessage
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:     make(map[string]map[*Client]bool),
		broadcast: make(chan roomMessage, sendBuffer),
		logger:    logger.With(slog.String("component", "live_hub")),
	}
}

func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) String() string {
	return "live-hub"
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[c.Room]; !ok {
		h.rooms[c.Room] = make(map[*Client]bool)
	}
	h.rooms[c.Room][c] = true
	h.logger.Debug("client registered", slog.String("room", c.Room), slog.Int("clients", len(h.rooms[c.Room])))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[c.Room]
	if !ok || !clients[c] {
		return
	}
	c.closeSend()
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.Room)
	}
	h.logger.Debug("client unregistered", slog.String("room", c.Room), slog.Int("clients", len(clients)))
}

// ClientCount returns the number of clients in room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastToRoom queues msg for every client in room. It drops the message
// when the hub is saturated.
func (h *Hub) BroadcastToRoom(room string, msg Message) {
	msg.RoomID = room
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal live message", slog.String("room", room), slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- roomMessage{room: room, data: data}:
	default:
		h.logger.Warn("live hub broadcast queue full, dropping message", slog.String("room", room), slog.String("type", msg.Type))
	}
}

func (h *Hub) deliver(msg roomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[msg.room] {
		if !c.Enqueue(msg.data) {
			h.logger.Warn("client send buffer full, skipping", slog.String("room", msg.room))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.rooms {
		for c := range clients {
			c.closeSend()
		}
		delete(h.rooms, room)
	}
}

// Attach registers an upgraded connection in room and starts its pumps.
// The initial messages are queued before any broadcast can reach the client.
func (h *Hub) Attach(conn *websocket.Conn, room string, initial ...[]byte) *Client {
	c := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		Room: room,
	}
	for _, msg := range initial {
		c.Enqueue(msg)
	}
	h.Register(c)
	go c.WritePump()
	go c.ReadPump()
	return c
}

// ReadPump discards client messages and keeps the read deadline fresh.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket closed unexpectedly", slog.String("room", c.Room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
