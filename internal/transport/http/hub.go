package http

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// hubClient is one connected websocket with its own writer goroutine,
// so no two goroutines ever write the connection concurrently.
type hubClient struct {
	conn *websocket.Conn
	send chan outboundMessage
	once sync.Once
}

func newHubClient(conn *websocket.Conn) *hubClient {
	c := &hubClient{
		conn: conn,
		send: make(chan outboundMessage, 32),
	}
	go func() {
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	return c
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connections and their room subscriptions, and implements
// app.Broadcaster on top of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*hubClient
	rooms   map[string]map[string]struct{}
	byConn  map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*hubClient),
		rooms:   make(map[string]map[string]struct{}),
		byConn:  make(map[string]map[string]struct{}),
	}
}

// Register adds a connection and starts its writer.
func (h *Hub) Register(connectionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connectionID] = newHubClient(conn)
}

// Unregister drops the connection and all of its room subscriptions.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[connectionID]; ok {
		client.close()
		delete(h.clients, connectionID)
	}
	for roomID := range h.byConn[connectionID] {
		delete(h.rooms[roomID], connectionID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.byConn, connectionID)
}

// Subscribe adds the connection to a room's broadcast set.
func (h *Hub) Subscribe(connectionID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]struct{})
	}
	h.rooms[roomID][connectionID] = struct{}{}
	if h.byConn[connectionID] == nil {
		h.byConn[connectionID] = make(map[string]struct{})
	}
	h.byConn[connectionID][roomID] = struct{}{}
}

// Unsubscribe removes the connection from a room's broadcast set.
func (h *Hub) Unsubscribe(connectionID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], connectionID)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	delete(h.byConn[connectionID], roomID)
}

// EmitToRoom queues the event for every member of the room. Slow
// clients get the event dropped rather than blocking the room.
func (h *Hub) EmitToRoom(roomID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connectionID := range h.rooms[roomID] {
		client, ok := h.clients[connectionID]
		if !ok {
			continue
		}
		select {
		case client.send <- outboundMessage{Type: event, Payload: payload}:
		default:
			log.Printf("dropping %s for slow connection %s", event, connectionID)
		}
	}
}

// EmitToConnection queues the event for a single connection.
func (h *Hub) EmitToConnection(connectionID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connectionID]
	if !ok {
		return
	}
	select {
	case client.send <- outboundMessage{Type: event, Payload: payload}:
	default:
		log.Printf("dropping %s for slow connection %s", event, connectionID)
	}
}
