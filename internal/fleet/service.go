// Package fleet owns vehicle lifecycle: CRUD with soft deletes, status
// changes, listings and the exclusive driver assignment registry.
package fleet

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/db"
	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
	"github.com/univfleet/vehicle-tracking/internal/validation"
)

// Publisher delivers notification events. Delivery is best-effort and never
// blocks or fails the state mutation that triggered it.
type Publisher interface {
	Publish(target models.Target, event models.NotificationEvent)
}

// Service implements vehicle CRUD and the assignment registry on top of the
// configured store backend.
type Service struct {
	store    db.Store
	notifier Publisher
	locks    *VehicleLocks
}

// NewService creates a fleet service.
func NewService(store db.Store, notifier Publisher) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		locks:    NewVehicleLocks(),
	}
}

// Locks exposes the per-vehicle mutation locks so collaborators writing the
// same records, like the location pipeline, serialize against this service.
func (s *Service) Locks() *VehicleLocks {
	return s.locks
}

func validateRequest(req models.VehicleRequest) (models.VehicleRequest, error) {
	fields := map[string]string{}

	number, err := validation.VehicleNumber(req.Number)
	if err != nil {
		if ve, ok := errs.AsValidation(err); ok {
			for k, v := range ve.Fields {
				fields[k] = v
			}
		}
	}
	req.Number = number

	if req.Capacity < 1 {
		fields["capacity"] = "capacity must be at least 1"
	}
	if !models.IsValidVehicleType(req.Type) {
		fields["type"] = "unknown vehicle type"
	}
	if req.Status == "" {
		req.Status = models.StatusActive
	} else if !models.IsValidVehicleStatus(req.Status) {
		fields["status"] = "unknown vehicle status"
	}

	if len(fields) > 0 {
		return req, &errs.ValidationError{Fields: fields}
	}
	return req, nil
}

// CreateVehicle validates and persists a new vehicle. When a driver id is
// supplied the assignment rules of AssignDriver are checked before the
// insert, so a rejected assignment leaves no vehicle behind.
func (s *Service) CreateVehicle(ctx context.Context, req models.VehicleRequest) (*models.Vehicle, error) {
	req, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	vehicle := &models.Vehicle{
		Number:     req.Number,
		Capacity:   req.Capacity,
		Type:       req.Type,
		Status:     req.Status,
		University: req.University,
		RouteName:  req.RouteName,
	}
	if req.DriverID != nil {
		if err := s.checkAssignment(ctx, "", *req.DriverID); err != nil {
			return nil, err
		}
		vehicle.DriverID = req.DriverID
	}

	created, err := s.store.CreateVehicle(ctx, vehicle)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"vehicle_id": created.ID, "number": created.Number}).
		Info("Vehicle created")
	return created, nil
}

// UpdateVehicle replaces a vehicle's descriptive fields and its driver
// reference in one store write. Omitting the driver clears the assignment;
// every check (field validation, number uniqueness, driver eligibility and
// exclusivity) runs before the write, so a rejected update leaves the
// record exactly as it was.
func (s *Service) UpdateVehicle(ctx context.Context, id string, req models.VehicleRequest) (*models.Vehicle, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.store.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	req, err = validateRequest(req)
	if err != nil {
		return nil, err
	}

	if req.Number != current.Number {
		exists, err := s.store.ExistsByNumber(ctx, req.Number)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errs.NewConflict("vehicle number already exists: %s", req.Number)
		}
	}

	routeChanged := req.RouteName != current.RouteName

	updated := *current
	updated.Number = req.Number
	updated.Capacity = req.Capacity
	updated.Type = req.Type
	updated.Status = req.Status
	updated.University = req.University
	updated.RouteName = req.RouteName
	updated.DriverID = nil
	if req.DriverID != nil {
		if err := s.checkAssignment(ctx, id, *req.DriverID); err != nil {
			return nil, err
		}
		updated.DriverID = req.DriverID
	}

	if err := s.store.UpdateVehicle(ctx, &updated); err != nil {
		return nil, err
	}

	result, err := s.store.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if routeChanged && s.notifier != nil {
		event := models.NewNotificationEvent(models.NotifyRouteChanged,
			"Vehicle "+result.Number+" is now serving route "+result.RouteName,
			map[string]string{
				"vehicleNumber": result.Number,
				"route":         result.RouteName,
			},
			models.RoleTarget(models.RoleStudent))
		s.notifier.Publish(event.Target, event)
	}
	return result, nil
}

// UpdateStatus changes only the operational status of a vehicle.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.VehicleStatus) (*models.Vehicle, error) {
	if !models.IsValidVehicleStatus(status) {
		return nil, errs.NewValidation("status", "unknown vehicle status")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	vehicle, err := s.store.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	vehicle.Status = status
	if err := s.store.UpdateVehicle(ctx, vehicle); err != nil {
		return nil, err
	}
	return s.store.FindVehicleByID(ctx, id)
}

// DeleteVehicle soft-deletes: the record survives for audit lookups but
// disappears from all active listings.
func (s *Service) DeleteVehicle(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.SoftDeleteVehicle(ctx, id); err != nil {
		return err
	}
	log.WithField("vehicle_id", id).Info("Vehicle deactivated")
	return nil
}

// GetVehicle returns an active vehicle by id.
func (s *Service) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	vehicle, err := s.store.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsActive {
		return nil, errs.NewNotFound("vehicle", id)
	}
	return vehicle, nil
}

// GetVehicleByNumber returns an active vehicle by its normalized number.
func (s *Service) GetVehicleByNumber(ctx context.Context, number string) (*models.Vehicle, error) {
	normalized := validation.NormalizeVehicleNumber(number)
	vehicle, err := s.store.FindVehicleByNumber(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsActive {
		return nil, errs.NewNotFound("vehicle", normalized)
	}
	return vehicle, nil
}

// ListVehicles returns active vehicles matching the filter.
func (s *Service) ListVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	filter.ActiveOnly = true
	return s.store.FindVehicles(ctx, filter)
}

// SearchVehicles matches number, university and route name.
func (s *Service) SearchVehicles(ctx context.Context, query string) ([]models.Vehicle, error) {
	return s.store.SearchVehicles(ctx, query)
}

// Stats computes real aggregates from the store.
func (s *Service) Stats(ctx context.Context) (*models.FleetStats, error) {
	byStatus, err := s.store.CountVehiclesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountVehicles(ctx, models.VehicleFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	vehicles, err := s.store.FindVehicles(ctx, models.VehicleFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	var assigned int64
	for i := range vehicles {
		if vehicles[i].DriverID != nil {
			assigned++
		}
	}

	return &models.FleetStats{
		Total:    total,
		ByStatus: byStatus,
		Assigned: assigned,
	}, nil
}
