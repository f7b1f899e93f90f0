// Package realtime pushes per-room queue snapshots to monitor displays
// over sockjs.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

type Client struct {
	ID     string
	Send   chan []byte
	RoomID string // empty subscribes to every room
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

type SubscribeMessage struct {
	Action string `json:"action"`
	RoomID string `json:"room_id"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.RoomID = roomID
}

// Broadcast delivers the payload to every client subscribed to the room.
// Slow clients drop messages rather than stalling the poll loop.
func (h *Hub) Broadcast(payload []byte, roomID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.RoomID != "" && client.RoomID != roomID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("drop message for client %s", client.ID)
		}
	}
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
