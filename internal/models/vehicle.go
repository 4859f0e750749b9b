package models

import (
	"time"
)

// VehicleType classifies what a vehicle is used for.
type VehicleType string

const (
	TypeStudentBus       VehicleType = "STUDENT_BUS"
	TypeTeacherBus       VehicleType = "TEACHER_BUS"
	TypeOfficeAdmin      VehicleType = "OFFICE_ADMIN_VEHICLE"
	TypeGeneralTransport VehicleType = "GENERAL_TRANSPORT"
)

// IsValidVehicleType checks if a vehicle type is valid.
func IsValidVehicleType(t VehicleType) bool {
	switch t {
	case TypeStudentBus, TypeTeacherBus, TypeOfficeAdmin, TypeGeneralTransport:
		return true
	default:
		return false
	}
}

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	StatusActive       VehicleStatus = "ACTIVE"
	StatusInactive     VehicleStatus = "INACTIVE"
	StatusMaintenance  VehicleStatus = "MAINTENANCE"
	StatusOutOfService VehicleStatus = "OUT_OF_SERVICE"
)

// IsValidVehicleStatus checks if a vehicle status is valid.
func IsValidVehicleStatus(s VehicleStatus) bool {
	switch s {
	case StatusActive, StatusInactive, StatusMaintenance, StatusOutOfService:
		return true
	default:
		return false
	}
}

// Position is the last reported location of a vehicle.
type Position struct {
	Lat        float64   `bson:"lat" json:"lat"`
	Lon        float64   `bson:"lon" json:"lon"`
	Speed      float64   `bson:"speed" json:"speed"`
	Heading    string    `bson:"heading,omitempty" json:"heading,omitempty"`
	FuelLevel  float64   `bson:"fuel_level" json:"fuel_level"`
	ObservedAt time.Time `bson:"observed_at" json:"observed_at"`
}

// Vehicle represents a fleet vehicle. IDs are opaque strings regardless of
// backend: uuid text under Postgres, ObjectID hex under Mongo.
//
// DriverID is a weak reference to a user with role DRIVER. At most one active
// vehicle may reference a given driver at a time; only the transactional
// backend enforces this atomically.
type Vehicle struct {
	ID         string        `bson:"_id,omitempty" json:"id"`
	Number     string        `bson:"number" json:"number"`
	Capacity   int           `bson:"capacity" json:"capacity"`
	Type       VehicleType   `bson:"type" json:"type"`
	Status     VehicleStatus `bson:"status" json:"status"`
	DriverID   *string       `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	University string        `bson:"university,omitempty" json:"university,omitempty"`
	RouteName  string        `bson:"route_name,omitempty" json:"route_name,omitempty"`
	Position   *Position     `bson:"position,omitempty" json:"position,omitempty"`
	IsActive   bool          `bson:"is_active" json:"is_active"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`
}

// HasPosition reports whether the vehicle has ever submitted a location.
func (v *Vehicle) HasPosition() bool {
	return v.Position != nil && !v.Position.ObservedAt.IsZero()
}

// VehicleRequest is the create/update payload for a vehicle.
type VehicleRequest struct {
	Number     string        `json:"number"`
	Capacity   int           `json:"capacity"`
	Type       VehicleType   `json:"type"`
	Status     VehicleStatus `json:"status"`
	DriverID   *string       `json:"driver_id,omitempty"`
	University string        `json:"university,omitempty"`
	RouteName  string        `json:"route_name,omitempty"`
}

// VehicleFilter narrows store listings. Zero values mean "any".
type VehicleFilter struct {
	Type       VehicleType
	Status     VehicleStatus
	University string
	// ActiveOnly excludes soft-deleted vehicles. Client-facing listings
	// always set it; audit scans do not.
	ActiveOnly bool
	// WithPosition keeps only vehicles that have reported a location.
	WithPosition bool
}

// FleetStats are aggregates computed against the store.
type FleetStats struct {
	Total    int64                   `json:"total"`
	ByStatus map[VehicleStatus]int64 `json:"by_status"`
	Assigned int64                   `json:"assigned"`
}
