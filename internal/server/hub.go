package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"backoffice-chat/internal/domain/actor"
	"backoffice-chat/internal/events"
	"backoffice-chat/pkg/logger"
)

// Hub maintains the set of live connections and their per-conversation
// rooms. It is fan-out only: every state change flows through the chat
// service first and the hub merely republishes the committed result.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	rooms      map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stopChan   chan struct{}
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		stopChan:   make(chan struct{}),
		log:        log,
	}
}

// Run owns registration until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case <-h.stopChan:
			return
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.log.Infof("client connected: %s %s", client.actor.Kind, client.actor.ID())

	go client.writePump()
	go client.readPump()
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for convID := range client.rooms {
		h.removeFromRoom(convID, client)
	}
	close(client.send)
	client.conn.Close()

	h.log.Infof("client disconnected: %s %s", client.actor.Kind, client.actor.ID())
}

// JoinRoom adds an already-authorized client to a conversation room.
// Authorization happens in the client handler on every join; the hub
// never trusts a cached claim.
func (h *Hub) JoinRoom(conversationID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Client]bool)
	}
	h.rooms[conversationID][client] = true
	client.rooms[conversationID] = true
}

func (h *Hub) LeaveRoom(conversationID uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(conversationID, client)
	delete(client.rooms, conversationID)
}

// removeFromRoom must run under h.mu.
func (h *Hub) removeFromRoom(conversationID uuid.UUID, client *Client) {
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

// BroadcastToConversation fans an event out to every connection in the
// room. Implements services.Broadcaster; a slow or gone client is
// skipped, never an error.
func (h *Hub) BroadcastToConversation(conversationID uuid.UUID, env events.Envelope) {
	h.broadcast(conversationID, env, nil)
}

// BroadcastToOthers is BroadcastToConversation minus the sender; used
// for typing indicators.
func (h *Hub) BroadcastToOthers(conversationID uuid.UUID, env events.Envelope, exclude *Client) {
	h.broadcast(conversationID, env, exclude)
}

func (h *Hub) broadcast(conversationID uuid.UUID, env events.Envelope, exclude *Client) {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Errorf("broadcast marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[conversationID] {
		if client == exclude {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.log.Warnf("client send buffer full: %s %s", client.actor.Kind, client.actor.ID())
		}
	}
}

// EvictFromRoom removes every connection of the given actor from a
// room. Join authorization is checked once per join, so a participant
// removed mid-session must be pushed out here or they keep receiving
// broadcasts until they reconnect.
func (h *Hub) EvictFromRoom(conversationID uuid.UUID, a actor.Actor) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.rooms[conversationID] {
		if client.actor.Kind == a.Kind && client.actor.ID() == a.ID() {
			h.removeFromRoom(conversationID, client)
			delete(client.rooms, conversationID)
		}
	}
}

// InRoom reports whether the client has joined the room.
func (h *Hub) InRoom(conversationID uuid.UUID, client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[conversationID][client]
}

// RoomSize reports the number of connections in a room.
func (h *Hub) RoomSize(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Stop closes every connection and shuts the hub down.
func (h *Hub) Stop() {
	close(h.stopChan)

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[uuid.UUID]map[*Client]bool)
}
