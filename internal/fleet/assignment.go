package fleet

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// AssignDriver binds a driver to a vehicle. The driver must exist, be
// active and hold role DRIVER; the vehicle must exist and be active. If
// another active vehicle already references the driver the call fails with
// a conflict.
//
// The store's SetVehicleDriver re-checks exclusivity at write time: the
// check is atomic under Postgres and check-then-act under Mongo, where two
// concurrent assigns of the same driver can both commit. The periodic audit
// reconciles that case.
func (s *Service) AssignDriver(ctx context.Context, vehicleID, driverID string) error {
	unlock := s.locks.Lock(vehicleID)
	defer unlock()

	return s.assignDriverLocked(ctx, vehicleID, driverID)
}

// assignDriverLocked is AssignDriver without the per-vehicle lock. Callers
// must already hold the lock for vehicleID.
func (s *Service) assignDriverLocked(ctx context.Context, vehicleID, driverID string) error {
	vehicle, err := s.store.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if !vehicle.IsActive {
		return errs.NewNotFound("vehicle", vehicleID)
	}

	if err := s.checkAssignment(ctx, vehicleID, driverID); err != nil {
		return err
	}
	if vehicle.DriverID != nil && *vehicle.DriverID == driverID {
		// Re-assigning the same driver to the same vehicle is a no-op.
		return nil
	}

	if err := s.store.SetVehicleDriver(ctx, vehicleID, driverID); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"number":     vehicle.Number,
		"driver_id":  driverID,
	}).Info("Driver assigned")
	return nil
}

// checkAssignment verifies the driver exists, is active, holds role DRIVER
// and is not bound to a different vehicle. It performs no writes, so create
// and update flows can reject a bad assignment before touching the record.
// vehicleID may be empty when the vehicle has not been created yet.
func (s *Service) checkAssignment(ctx context.Context, vehicleID, driverID string) error {
	driver, err := s.store.FindUserByID(ctx, driverID)
	if err != nil {
		if _, ok := errs.AsNotFound(err); ok {
			return errs.NewNotFound("driver", driverID)
		}
		return err
	}
	if !driver.IsDriver() {
		return errs.NewValidation("driver_id", "user is not a driver")
	}
	if !driver.IsActive {
		return errs.NewNotFound("driver", driverID)
	}

	if existing, err := s.store.FindVehicleByDriverID(ctx, driverID); err == nil {
		if existing.ID != vehicleID {
			return errs.NewConflict("driver is already assigned to another vehicle: %s", existing.Number)
		}
	} else if _, ok := errs.AsNotFound(err); !ok {
		return err
	}
	return nil
}

// UnassignDriver clears the vehicle's driver reference unconditionally.
func (s *Service) UnassignDriver(ctx context.Context, vehicleID string) error {
	unlock := s.locks.Lock(vehicleID)
	defer unlock()

	if _, err := s.store.FindVehicleByID(ctx, vehicleID); err != nil {
		return err
	}
	if err := s.store.ClearVehicleDriver(ctx, vehicleID); err != nil {
		return err
	}
	log.WithField("vehicle_id", vehicleID).Info("Driver unassigned")
	return nil
}

// VehicleForDriver returns the active vehicle the driver is assigned to.
func (s *Service) VehicleForDriver(ctx context.Context, driverID string) (*models.Vehicle, error) {
	return s.store.FindVehicleByDriverID(ctx, driverID)
}
