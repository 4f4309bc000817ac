package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// FeedTopic carries project-created events to every open feed.
const FeedTopic = "feed"

// DMTopic is the topic on which userID receives direct messages.
func DMTopic(userID string) string { return "dm:" + userID }

type Client struct {
	UserID string
	Topic  string
	Send   chan []byte
	Conn   *websocket.Conn
}

type Hub struct {
	Clients    map[string]map[*Client]bool // topic -> clients
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan BroadcastMessage
	mu         sync.RWMutex
	done       chan struct{}
}

type BroadcastMessage struct {
	Topic string
	Data  []byte
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan BroadcastMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run dispatches registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case client := <-h.Register:
			h.mu.Lock()
			if h.Clients[client.Topic] == nil {
				h.Clients[client.Topic] = make(map[*Client]bool)
			}
			h.Clients[client.Topic][client] = true
			h.mu.Unlock()
		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case msg := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.Clients[msg.Topic] {
				select {
				case client.Send <- msg.Data:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues data for every client on topic without blocking the caller for long.
func (h *Hub) Publish(ctx context.Context, topic string, data []byte) {
	select {
	case h.Broadcast <- BroadcastMessage{Topic: topic, Data: data}:
	case <-ctx.Done():
	case <-h.done:
	case <-time.After(writeWait):
		slog.WarnContext(ctx, "websocket broadcast dropped", "topic", topic)
	}
}

// Count returns the number of clients subscribed to topic.
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients[topic])
}

// Serve registers a client for conn and pumps messages until the connection closes.
// Inbound frames are discarded; the socket is push only.
func (h *Hub) Serve(conn *websocket.Conn, userID, topic string) {
	client := &Client{
		UserID: userID,
		Topic:  topic,
		Send:   make(chan []byte, 256),
		Conn:   conn,
	}
	defer conn.Close()
	select {
	case h.Register <- client:
	case <-h.done:
		return
	}

	go client.writePump()

	defer func() {
		select {
		case h.Unregister <- client:
		case <-h.done:
		}
	}()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, nil)
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

func (h *Hub) remove(client *Client) {
	if clients, ok := h.Clients[client.Topic]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				delete(h.Clients, client.Topic)
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.Clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// NewUpgrader accepts upgrades from the comma separated allowedOrigins and from clients that
// send no Origin.
func NewUpgrader(allowedOrigins string) *websocket.Upgrader {
	allowed := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}
