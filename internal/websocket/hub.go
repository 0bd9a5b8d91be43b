// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"workdesk-service/internal/domain/auth"

	"go.uber.org/zap"
)

// SessionEvent is a session-state transition pushed to subscribed clients.
type SessionEvent struct {
	Type     string        `json:"type"`
	Snapshot auth.Snapshot `json:"snapshot"`
}

// Hub fans session-state snapshots out to the websocket clients subscribed
// to each session. It is the transport behind the lifecycle controller's
// observer hook.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool // keyed by session id

	register   chan *Client
	unregister chan *Client
	events     chan sessionBroadcast

	logger *zap.Logger
}

type sessionBroadcast struct {
	sessionID string
	payload   []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan sessionBroadcast, 256),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.events:
			h.deliver(event)
		}
	}
}

// Register attaches a client to its session's broadcast group.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister detaches a client.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastSnapshot pushes a session-state snapshot to every client watching
// sessionID. Drops the event when the hub is saturated rather than blocking
// the lifecycle controller.
func (h *Hub) BroadcastSnapshot(sessionID string, snap auth.Snapshot) {
	payload, err := json.Marshal(SessionEvent{Type: "session:state", Snapshot: snap})
	if err != nil {
		h.logger.Error("failed to marshal session event", zap.Error(err))
		return
	}

	select {
	case h.events <- sessionBroadcast{sessionID: sessionID, payload: payload}:
	default:
		h.logger.Warn("session event dropped, hub saturated",
			zap.String("session_id", sessionID),
		)
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.clients[client.sessionID]
	if !ok {
		group = make(map[*Client]bool)
		h.clients[client.sessionID] = group
	}
	group[client] = true
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.clients[client.sessionID]
	if !ok {
		return
	}
	if group[client] {
		delete(group, client)
		close(client.send)
	}
	if len(group) == 0 {
		delete(h.clients, client.sessionID)
	}
}

func (h *Hub) deliver(event sessionBroadcast) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[event.sessionID] {
		select {
		case client.send <- event.payload:
		default:
			// Slow consumer; it will be dropped on its next pump error.
			h.logger.Warn("client send buffer full",
				zap.String("session_id", event.sessionID),
			)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, group := range h.clients {
		for client := range group {
			close(client.send)
		}
		delete(h.clients, sessionID)
	}
}
