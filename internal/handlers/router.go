package handlers

import (
	"net/http"

	"github.com/univfleet/vehicle-tracking/internal/middleware"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// Router wires every endpoint with its role gate. Reads are open to any
// authenticated caller; mutations are admin-only except location reports
// (driver) and emergency alerts (driver or admin).
func Router(
	authMW *middleware.AuthMiddleware,
	vehicles *VehicleHandler,
	trackingH *TrackingHandler,
	notifications *NotificationHandler,
	ws *WSHandler,
) http.Handler {
	mux := http.NewServeMux()

	admin := authMW.RequireRole(models.RoleAdmin)
	driver := authMW.RequireRole(models.RoleDriver)

	mux.Handle("POST /api/vehicles", admin(http.HandlerFunc(vehicles.Create)))
	mux.Handle("PUT /api/vehicles/{id}", admin(http.HandlerFunc(vehicles.Update)))
	mux.Handle("DELETE /api/vehicles/{id}", admin(http.HandlerFunc(vehicles.Delete)))
	mux.HandleFunc("GET /api/vehicles", vehicles.List)
	mux.HandleFunc("GET /api/vehicles/stats", vehicles.Stats)
	mux.HandleFunc("GET /api/vehicles/search", vehicles.Search)
	mux.HandleFunc("GET /api/vehicles/number/{number}", vehicles.GetByNumber)
	mux.HandleFunc("GET /api/vehicles/{id}", vehicles.Get)
	mux.Handle("POST /api/vehicles/{id}/assign-driver/{driverId}",
		admin(http.HandlerFunc(vehicles.AssignDriver)))
	mux.Handle("POST /api/vehicles/{id}/unassign-driver",
		admin(http.HandlerFunc(vehicles.UnassignDriver)))
	mux.Handle("PUT /api/vehicles/{id}/status", admin(http.HandlerFunc(vehicles.UpdateStatus)))

	mux.Handle("POST /api/tracking/location/{vehicleId}",
		driver(http.HandlerFunc(trackingH.UpdateLocation)))
	mux.HandleFunc("GET /api/tracking/vehicles", trackingH.TrackedVehicles)
	mux.HandleFunc("GET /api/tracking/vehicles/university/{university}",
		trackingH.TrackedVehiclesByUniversity)
	mux.Handle("GET /api/tracking/my-vehicle", driver(http.HandlerFunc(trackingH.MyVehicle)))

	mux.Handle("POST /api/notifications/emergency",
		driver(http.HandlerFunc(notifications.Emergency)))
	mux.Handle("POST /api/notifications/arrival",
		driver(http.HandlerFunc(notifications.Arrival)))
	mux.HandleFunc("GET /api/notifications/history", notifications.History)

	mux.HandleFunc("GET /ws", ws.Subscribe)

	return authMW.Authenticate(mux)
}

// Health is mounted outside the authenticated router.
func Health(ping func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
