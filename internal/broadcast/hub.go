package broadcast

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

type Client struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

type unicast struct {
	userID  string
	payload any
}

// Hub implements Broadcaster over websocket connections. One goroutine
// (Run) owns the client set; register/unregister/publish all funnel through
// its channels.
type Hub struct {
	clients    map[*Client]bool
	byUser     map[string]map[*Client]bool
	broadcast  chan any
	direct     chan unicast
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]bool),
		broadcast:  make(chan any, 256),
		direct:     make(chan unicast, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.byUser[client.userID] == nil {
				h.byUser[client.userID] = make(map[*Client]bool)
			}
			h.byUser[client.userID][client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s (Total: %d)", client.userID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if set := h.byUser[client.userID]; set != nil {
					delete(set, client)
					if len(set) == 0 {
						delete(h.byUser, client.userID)
					}
				}
				client.conn.Close()
				log.Printf("[WS] Client disconnected: %s (Total: %d)", client.userID, len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				go client.send(data) // non-blocking fan-out
			}
			h.mu.RUnlock()

		case msg := <-h.direct:
			data, err := json.Marshal(msg.payload)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}
			h.mu.RLock()
			for client := range h.byUser[msg.userID] {
				go client.send(data)
			}
			h.mu.RUnlock()
		}
	}
}

// PublishRound queues an event for every connected viewer. A full queue
// drops the event rather than blocking the caller.
func (h *Hub) PublishRound(event any) {
	select {
	case h.broadcast <- event:
	default:
		log.Println("[WS] Broadcast channel full, dropping message")
	}
}

// PublishUser queues an event for one user's connections.
func (h *Hub) PublishUser(userID string, event any) {
	select {
	case h.direct <- unicast{userID: userID, payload: event}:
	default:
		log.Println("[WS] Unicast channel full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[WS] Write error for user %s: %v", c.userID, err)
	}
}

// Send marshals and writes an event on this client's connection only.
func (c *Client) Send(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WS] Send marshal error: %v", err)
		return
	}
	c.send(data)
}

func (c *Client) UserID() string {
	return c.userID
}

func (h *Hub) RegisterClient(conn *websocket.Conn, userID string) *Client {
	client := &Client{conn: conn, userID: userID}
	h.register <- client
	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
