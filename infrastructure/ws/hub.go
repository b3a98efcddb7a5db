// Package ws is the broadcast transport collaborator: a gorilla/websocket
// hub that fans events out to every connection subscribed to a room and
// reports connect/disconnect to the coordination engine.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// frame is the wire envelope, both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub maintains the set of active clients and their room subscriptions.
// It implements contract.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client             // conn id -> client
	rooms   map[string]map[*Client]bool    // room code -> subscribers
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]bool),
		log:     log,
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.id] = client
}

// drop removes the client from the hub and every room it subscribed to,
// cleaning up empty room sets. The send channel is closed here and nowhere
// else: Broadcast and SendTo push under the read lock, so by the time drop
// holds the write lock no push can still be in flight, and once the client
// has left the maps no new push can reach it.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client.id)
	for roomCode, subscribers := range h.rooms {
		if subscribers[client] {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.rooms, roomCode)
			}
		}
	}
	client.close()
}

// Subscribe adds the connection to a room's fan-out set.
func (h *Hub) Subscribe(connID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if _, ok := h.rooms[roomCode]; !ok {
		h.rooms[roomCode] = make(map[*Client]bool)
	}
	h.rooms[roomCode][client] = true
}

// Broadcast sends the event to all connections subscribed to the room.
// A client whose send buffer is full is dropped from the hub; its pumps then
// report the disconnect through the usual path.
func (h *Hub) Broadcast(roomCode, name string, payload any) {
	data, err := json.Marshal(outboundFrame{Event: name, Data: payload})
	if err != nil {
		h.log.Error("Broadcast payload not marshallable", "event", name, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomCode] {
		client.push(data)
	}
}

// SendTo sends the event to a single connection.
func (h *Hub) SendTo(connID, name string, payload any) {
	data, err := json.Marshal(outboundFrame{Event: name, Data: payload})
	if err != nil {
		h.log.Error("Reply payload not marshallable", "event", name, "error", err)
		return
	}

	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		client.push(data)
	}
}
