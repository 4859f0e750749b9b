// Package notify implements role-scoped event fan-out over websockets, a
// bounded in-memory history, an optional MQTT mirror and the high-priority
// emergency/arrival dispatcher.
package notify

import (
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/models"
)

const (
	// sendQueueSize bounds the per-client normal queue. When it is full
	// the event is dropped for that client; delivery is best-effort.
	sendQueueSize = 32

	// urgentQueueSize bounds the per-client priority queue, drained ahead
	// of normal traffic by the write pump.
	urgentQueueSize = 8
)

// Client is one connected subscriber. On registration it joins its role
// topic and its personal queue.
type Client struct {
	UserID string
	Role   models.Role

	conn   *websocket.Conn
	send   chan models.NotificationEvent
	urgent chan models.NotificationEvent
	done   chan struct{}
	once   sync.Once
}

// NewClient wraps an upgraded websocket connection.
func NewClient(userID string, role models.Role, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan models.NotificationEvent, sendQueueSize),
		urgent: make(chan models.NotificationEvent, urgentQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// WritePump pushes queued events to the connection until the client goes
// away. Urgent events are always drained before normal traffic; this is a
// priority hint at the transport layer, not a cross-topic ordering
// guarantee. Run it in its own goroutine.
func (c *Client) WritePump() {
	defer c.close()
	for {
		select {
		case event := <-c.urgent:
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
			continue
		default:
		}
		select {
		case event := <-c.urgent:
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadPump discards inbound frames and unregisters the client when the
// connection drops. Run it in its own goroutine.
func (c *Client) ReadPump(hub *Hub) {
	defer hub.Unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Mirror receives every published event independently of delivery success.
type Mirror interface {
	MirrorEvent(event models.NotificationEvent)
}

// Hub fans events out to every subscriber of a target. There is no durable
// queue and no replay: if nobody is connected to a target the event is
// dropped, leaving only the history entry.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[models.Target]map[*Client]bool

	history *History
	mirror  Mirror
}

// NewHub creates a hub with a bounded history. mirror may be nil.
func NewHub(history *History, mirror Mirror) *Hub {
	return &Hub{
		subscribers: make(map[models.Target]map[*Client]bool),
		history:     history,
		mirror:      mirror,
	}
}

func (h *Hub) subscribe(target models.Target, c *Client) {
	if h.subscribers[target] == nil {
		h.subscribers[target] = make(map[*Client]bool)
	}
	h.subscribers[target][c] = true
}

// Register subscribes the client to its role topic and personal queue.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribe(models.RoleTarget(c.Role), c)
	h.subscribe(models.UserTarget(c.UserID), c)
	log.WithFields(log.Fields{"user_id": c.UserID, "role": c.Role}).
		Debug("Subscriber connected")
}

// Unregister drops the client from every target and closes it.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for target, clients := range h.subscribers {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subscribers, target)
		}
	}
	h.mu.Unlock()
	c.close()
}

// SubscriberCount reports how many clients are connected to a target.
func (h *Hub) SubscriberCount(target models.Target) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[target])
}

// Publish delivers the event to every subscriber currently connected to the
// target. The history entry and the mirror publish happen regardless of
// whether anyone is connected. A subscriber with a full queue misses the
// event; a failed publish never affects the caller.
func (h *Hub) Publish(target models.Target, event models.NotificationEvent) {
	event.Target = target

	if h.history != nil {
		h.history.Add(event)
	}
	if h.mirror != nil {
		h.mirror.MirrorEvent(event)
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.subscribers[target]))
	for c := range h.subscribers[target] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		queue := c.send
		if event.Type.Priority() == models.PriorityHigh {
			queue = c.urgent
		}
		select {
		case queue <- event:
		default:
			log.WithFields(log.Fields{
				"user_id": c.UserID,
				"type":    event.Type,
			}).Warn("Subscriber queue full, event dropped")
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.subscribers {
		for c := range clients {
			c.close()
		}
	}
	h.subscribers = make(map[models.Target]map[*Client]bool)
}
