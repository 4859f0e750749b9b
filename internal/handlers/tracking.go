package handlers

import (
	"net/http"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/fleet"
	"github.com/univfleet/vehicle-tracking/internal/middleware"
	"github.com/univfleet/vehicle-tracking/internal/models"
	"github.com/univfleet/vehicle-tracking/internal/tracking"
)

// TrackingHandler serves location ingestion and the tracking listings.
type TrackingHandler struct {
	pipeline *tracking.Pipeline
	fleet    *fleet.Service
}

// NewTrackingHandler creates a tracking handler.
func NewTrackingHandler(pipeline *tracking.Pipeline, fleetService *fleet.Service) *TrackingHandler {
	return &TrackingHandler{pipeline: pipeline, fleet: fleetService}
}

// UpdateLocation handles POST /api/tracking/location/{vehicleId}. Only the
// vehicle's own assigned driver may report; admins may report for any
// vehicle.
func (h *TrackingHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	vehicleID := r.PathValue("vehicleId")

	if claims.Role != models.RoleAdmin {
		assigned, err := h.fleet.VehicleForDriver(r.Context(), claims.UserID)
		if err != nil {
			// No assignment means the caller may not report; anything
			// else is a store failure and surfaces as such.
			if _, ok := errs.AsNotFound(err); ok {
				writeError(w, errs.NewValidation("vehicleId",
					"you are not authorized to update location for this vehicle"))
			} else {
				writeError(w, err)
			}
			return
		}
		if assigned.ID != vehicleID {
			writeError(w, errs.NewValidation("vehicleId",
				"you are not authorized to update location for this vehicle"))
			return
		}
	}

	var report models.LocationReport
	if !decodeBody(w, r, &report) {
		return
	}

	vehicle, err := h.pipeline.UpdateLocation(r.Context(), vehicleID, report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// TrackedVehicles handles GET /api/tracking/vehicles: active vehicles with
// a reported position.
func (h *TrackingHandler) TrackedVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.pipeline.TrackedVehicles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// TrackedVehiclesByUniversity handles
// GET /api/tracking/vehicles/university/{university}.
func (h *TrackingHandler) TrackedVehiclesByUniversity(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.pipeline.TrackedVehiclesByUniversity(r.Context(), r.PathValue("university"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// MyVehicle handles GET /api/tracking/my-vehicle for drivers.
func (h *TrackingHandler) MyVehicle(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	vehicle, err := h.fleet.VehicleForDriver(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}
