package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"worldroom/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Hub relays change notifications to websocket clients. Each client always
// follows its room topic and may add round and game topics of that room.
type Hub struct {
	clients     map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	mutex       sync.RWMutex
	gameService *GameService
	notifier    realtime.Notifier
}

type Client struct {
	hub        *Hub
	id         string
	socket     *websocket.Conn
	send       chan []byte
	roomID     uint
	roomCode   string
	playerID   uint
	playerName string

	mu     sync.Mutex
	closed bool
	subs   map[realtime.Topic]realtime.Subscription
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(gameService *GameService, notifier realtime.Notifier) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		gameService: gameService,
		notifier:    notifier,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			client.follow(realtime.RoomTopic(client.roomID))
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			client.logger().WithField("total_clients", total).Info("Client registered")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				client.logger().WithField("total_clients", len(h.clients)).Info("Client unregistered")
			}
			h.mutex.Unlock()

		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, roomID uint, roomCode string, playerID uint, playerName string) *Client {
	client := &Client{
		hub:        h,
		id:         uuid.NewString(),
		socket:     conn,
		send:       make(chan []byte, 256),
		roomID:     roomID,
		roomCode:   roomCode,
		playerID:   playerID,
		playerName: playerName,
		subs:       make(map[realtime.Topic]realtime.Subscription),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ConnectedPlayers lists the players with an open socket in a room.
func (h *Hub) ConnectedPlayers(roomID uint) []uint {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var playerIDs []uint
	for client := range h.clients {
		if client.roomID == roomID {
			playerIDs = append(playerIDs, client.playerID)
		}
	}
	return playerIDs
}

func (c *Client) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"client_id": c.id,
		"room_id":   c.roomID,
		"player_id": c.playerID,
	})
}

// enqueue drops the message when the client is closed or its buffer is
// full. A client that misses a wake-up still catches up on its next poll.
func (c *Client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger().WithError(err).Error("Failed to marshal websocket message")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger().WithField("type", msg.Type).Warn("Client send buffer full, dropping message")
	}
}

func (c *Client) follow(topic realtime.Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.subs[topic]; ok {
		return
	}
	c.subs[topic] = c.hub.notifier.Subscribe(topic, func(e realtime.Event) {
		c.enqueue(Message{Type: "state_changed", Payload: e})
	})
}

func (c *Client) unfollow(topic realtime.Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[topic]; ok {
		sub.Unsubscribe()
		delete(c.subs, topic)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for topic, sub := range c.subs {
		sub.Unsubscribe()
		delete(c.subs, topic)
	}
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().WithError(err).Warn("WebSocket read error")
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.enqueue(Message{Type: "error", Payload: map[string]string{"error": "malformed message"}})
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg inboundMessage) {
	switch msg.Type {
	case "ping":
		c.enqueue(Message{Type: "pong"})

	case "subscribe", "unsubscribe":
		var topic realtime.Topic
		if err := json.Unmarshal(msg.Payload, &topic); err != nil || !topic.Scope.Valid() {
			c.enqueue(Message{Type: "error", Payload: map[string]string{"error": "invalid topic"}})
			return
		}
		if msg.Type == "unsubscribe" {
			c.unfollow(topic)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		roomID, err := c.hub.gameService.RoomOfTopic(ctx, topic)
		if err != nil || roomID != c.roomID {
			c.enqueue(Message{Type: "error", Payload: map[string]string{"error": "topic is not part of this room"}})
			return
		}
		c.follow(topic)
		c.enqueue(Message{Type: "subscribed", Payload: topic})

	case "request_state":
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		state, err := c.hub.gameService.RoomState(ctx, c.roomCode, c.playerID)
		if err != nil {
			c.enqueue(Message{Type: "error", Payload: map[string]string{"error": err.Error(), "kind": Kind(err)}})
			return
		}
		c.enqueue(Message{Type: "room_state", Payload: state})

	default:
		c.logger().WithField("type", msg.Type).Debug("Unknown websocket message type")
	}
}
