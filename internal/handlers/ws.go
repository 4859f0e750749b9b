package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/middleware"
	"github.com/univfleet/vehicle-tracking/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from the frontend origin; token auth already ran.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades authenticated clients and registers them with the hub.
// Each connection is subscribed to the caller's role topic and personal
// queue; events arrive as JSON NotificationEvent frames.
type WSHandler struct {
	hub *notify.Hub
}

// NewWSHandler creates a websocket handler over the hub.
func NewWSHandler(hub *notify.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Subscribe handles GET /ws.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := notify.NewClient(claims.UserID, claims.Role, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.hub)
}
