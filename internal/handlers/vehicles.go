package handlers

import (
	"net/http"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/fleet"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// VehicleHandler serves the admin CRUD and assignment endpoints.
type VehicleHandler struct {
	service *fleet.Service
}

// NewVehicleHandler creates a vehicle handler.
func NewVehicleHandler(service *fleet.Service) *VehicleHandler {
	return &VehicleHandler{service: service}
}

// Create handles POST /api/vehicles.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.VehicleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	vehicle, err := h.service.CreateVehicle(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

// Update handles PUT /api/vehicles/{id}.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.VehicleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	vehicle, err := h.service.UpdateVehicle(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Delete handles DELETE /api/vehicles/{id}. Deletion is a soft delete; the
// id stays valid for audit lookups.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteVehicle(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "vehicle deactivated"})
}

// Get handles GET /api/vehicles/{id}.
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.service.GetVehicle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// GetByNumber handles GET /api/vehicles/number/{number}.
func (h *VehicleHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.service.GetVehicleByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// List handles GET /api/vehicles with optional type/status/university
// filters.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.VehicleFilter{
		Type:       models.VehicleType(r.URL.Query().Get("type")),
		Status:     models.VehicleStatus(r.URL.Query().Get("status")),
		University: r.URL.Query().Get("university"),
	}
	vehicles, err := h.service.ListVehicles(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// Search handles GET /api/vehicles/search?q=.
func (h *VehicleHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, errs.NewValidation("q", "search query is required"))
		return
	}
	vehicles, err := h.service.SearchVehicles(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// Stats handles GET /api/vehicles/stats with aggregates computed against
// the store.
func (h *VehicleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AssignDriver handles POST /api/vehicles/{id}/assign-driver/{driverId}.
func (h *VehicleHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("id")
	driverID := r.PathValue("driverId")
	if err := h.service.AssignDriver(r.Context(), vehicleID, driverID); err != nil {
		writeError(w, err)
		return
	}
	vehicle, err := h.service.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// UnassignDriver handles POST /api/vehicles/{id}/unassign-driver.
func (h *VehicleHandler) UnassignDriver(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("id")
	if err := h.service.UnassignDriver(r.Context(), vehicleID); err != nil {
		writeError(w, err)
		return
	}
	vehicle, err := h.service.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// UpdateStatus handles PUT /api/vehicles/{id}/status.
func (h *VehicleHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.VehicleStatus `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	vehicle, err := h.service.UpdateStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}
