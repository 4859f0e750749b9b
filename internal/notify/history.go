package notify

import (
	"sync"

	"github.com/univfleet/vehicle-tracking/internal/models"
)

// History is a capped ring buffer of published events. It is a best-effort
// side log written independently of delivery success, not a durable queue;
// once capacity wraps, the oldest entries are gone.
type History struct {
	mu     sync.RWMutex
	events []models.NotificationEvent
	next   int
	full   bool
}

// NewHistory creates a history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{events: make([]models.NotificationEvent, capacity)}
}

// Add records an event, evicting the oldest entry once full.
func (h *History) Add(event models.NotificationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[h.next] = event
	h.next = (h.next + 1) % len(h.events)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns the retained events, oldest first.
func (h *History) Recent() []models.NotificationEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.full {
		out := make([]models.NotificationEvent, h.next)
		copy(out, h.events[:h.next])
		return out
	}
	out := make([]models.NotificationEvent, 0, len(h.events))
	out = append(out, h.events[h.next:]...)
	out = append(out, h.events[:h.next]...)
	return out
}

// VisibleTo returns retained events addressed to the caller: their role
// topic and their personal queue.
func (h *History) VisibleTo(claims *models.Claims) []models.NotificationEvent {
	roleTopic := models.RoleTarget(claims.Role)
	personal := models.UserTarget(claims.UserID)

	out := []models.NotificationEvent{}
	for _, event := range h.Recent() {
		if event.Target == roleTopic || event.Target == personal {
			out = append(out, event)
		}
	}
	return out
}
