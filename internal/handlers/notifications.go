package handlers

import (
	"net/http"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/middleware"
	"github.com/univfleet/vehicle-tracking/internal/notify"
)

// NotificationHandler exposes the dispatcher and the event history.
type NotificationHandler struct {
	dispatcher *notify.Dispatcher
	history    *notify.History
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(dispatcher *notify.Dispatcher, history *notify.History) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher, history: history}
}

// Emergency handles POST /api/notifications/emergency.
func (h *NotificationHandler) Emergency(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VehicleNumber string `json:"vehicleNumber"`
		Location      string `json:"location"`
		Details       string `json:"details"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.VehicleNumber == "" {
		writeError(w, errs.NewValidation("vehicleNumber", "vehicle number is required"))
		return
	}
	h.dispatcher.EmergencyAlert(body.VehicleNumber, body.Location, body.Details)
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "emergency alert dispatched"})
}

// Arrival handles POST /api/notifications/arrival.
func (h *NotificationHandler) Arrival(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VehicleNumber string `json:"vehicleNumber"`
		StopName      string `json:"stopName"`
		Route         string `json:"route"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.VehicleNumber == "" || body.StopName == "" {
		writeError(w, errs.NewValidation("stopName", "vehicle number and stop name are required"))
		return
	}
	h.dispatcher.VehicleArrival(body.VehicleNumber, body.StopName, body.Route)
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "arrival notification dispatched"})
}

// History handles GET /api/notifications/history: retained events addressed
// to the caller's role topic or personal queue.
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, h.history.VisibleTo(claims))
}
