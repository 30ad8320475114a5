package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans registry events out to connected clients. Admin connections see
// every event, regular connections only events about their own account.
type Hub struct {
	clients    map[int64]map[*Client]bool
	admins     map[*Client]bool
	mu         sync.RWMutex
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		admins:     make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	if client.Admin {
		h.admins[client] = true
	}
	log.Printf("Client %s for user %d registered", client.ID, client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if userClients, ok := h.clients[client.UserID]; ok {
		if _, ok := userClients[client]; ok {
			delete(userClients, client)
			delete(h.admins, client)
			close(client.send)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
			log.Printf("Client %s for user %d unregistered", client.ID, client.UserID)
		}
	}
}

// PublishEvent delivers an event about userID to that user's connections and
// to every admin connection.
func (h *Hub) PublishEvent(userID int64, eventData []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]bool)
	for client := range h.admins {
		seen[client] = true
		h.send(client, eventData)
	}
	for client := range h.clients[userID] {
		if !seen[client] {
			h.send(client, eventData)
		}
	}
}

func (h *Hub) send(client *Client, eventData []byte) {
	select {
	case client.send <- eventData:
	default:
		log.Printf("WARN: Client %s send buffer is full. Dropping message.", client.ID)
	}
}
