// Package db provides the fleet state store behind a single contract with
// two interchangeable backends: Postgres (transactional) and MongoDB
// (document-oriented). The backend is selected by configuration; callers
// must treat the store's effective guarantees as the weaker of the two.
package db

import (
	"context"

	"github.com/univfleet/vehicle-tracking/internal/models"
)

// VehicleStore is the capability set every backend implements.
//
// Guarantee note: vehicle-number uniqueness (CreateVehicle, UpdateVehicle)
// and driver-assignment exclusivity (SetVehicleDriver) are enforced
// atomically only by the Postgres implementation. The Mongo implementation
// enforces both by read-check-write, which is not atomic: concurrent writers
// can both pass their check and both commit. The abstraction does not
// upgrade a weak backend's guarantees; the periodic audit reconciles what
// write-time checks on the document backend cannot prevent.
type VehicleStore interface {
	// CreateVehicle persists a new vehicle and returns it with its id set.
	// A duplicate number yields a ConflictError.
	CreateVehicle(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error)

	// UpdateVehicle replaces the stored record. NotFoundError when absent.
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error

	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindVehicleByNumber(ctx context.Context, number string) (*models.Vehicle, error)
	FindVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error)

	// SearchVehicles matches the query against number, university and
	// route name, case-insensitively. Soft-deleted vehicles are excluded.
	SearchVehicles(ctx context.Context, query string) ([]models.Vehicle, error)

	ExistsByNumber(ctx context.Context, number string) (bool, error)
	CountVehicles(ctx context.Context, filter models.VehicleFilter) (int64, error)
	CountVehiclesByStatus(ctx context.Context) (map[models.VehicleStatus]int64, error)

	// FindVehicleByDriverID returns the active vehicle referencing the
	// driver, or a NotFoundError when none does.
	FindVehicleByDriverID(ctx context.Context, driverID string) (*models.Vehicle, error)

	// SetVehicleDriver binds a driver to a vehicle. A ConflictError is
	// returned when another active vehicle already references the driver.
	SetVehicleDriver(ctx context.Context, vehicleID, driverID string) error

	// ClearVehicleDriver removes the vehicle's driver reference
	// unconditionally.
	ClearVehicleDriver(ctx context.Context, vehicleID string) error

	// UpdateVehiclePosition atomically replaces the vehicle's last-known
	// position and bumps updated_at, returning the updated record.
	UpdateVehiclePosition(ctx context.Context, vehicleID string, pos models.Position) (*models.Vehicle, error)

	// SoftDeleteVehicle flips the active flag. The record and its id
	// survive for audit lookups; vehicles are never physically deleted.
	SoftDeleteVehicle(ctx context.Context, id string) error
}

// UserStore persists users, including drivers.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// Store is the complete persistence contract.
type Store interface {
	VehicleStore
	UserStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
