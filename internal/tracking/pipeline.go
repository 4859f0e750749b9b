// Package tracking is the location ingestion pipeline: it validates driver
// location reports, folds them into vehicle state and emits derived events
// to role topics. Authorization that the caller is the vehicle's assigned
// driver happens in the HTTP layer before the pipeline runs.
package tracking

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/db"
	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
	"github.com/univfleet/vehicle-tracking/internal/validation"
)

// LowFuelThreshold is the fuel percentage at or below which a FUEL_LOW
// event goes to the admin topic.
const LowFuelThreshold = 15.0

// Publisher delivers notification events, best-effort.
type Publisher interface {
	Publish(target models.Target, event models.NotificationEvent)
}

// VehicleLocker serializes writes per vehicle id. The fleet service's lock
// set is injected here so a location report and a fleet mutation to the
// same vehicle never interleave.
type VehicleLocker interface {
	Lock(id string) func()
}

// Pipeline validates and applies location reports.
type Pipeline struct {
	store    db.VehicleStore
	notifier Publisher
	locks    VehicleLocker
	now      func() time.Time
}

// NewPipeline creates a location ingestion pipeline.
func NewPipeline(store db.VehicleStore, notifier Publisher, locks VehicleLocker) *Pipeline {
	return &Pipeline{
		store:    store,
		notifier: notifier,
		locks:    locks,
		now:      time.Now,
	}
}

// UpdateLocation validates a report and applies it to the vehicle. On any
// field violation the prior position is left unchanged and a field-keyed
// validation error is returned; there are no partial writes. On success the
// updated vehicle is returned and, when the vehicle is moving, a
// VEHICLE_DEPARTED event is published to the student topic. Publishing is
// fire-and-forget: a dropped event never rolls back the write.
func (p *Pipeline) UpdateLocation(ctx context.Context, vehicleID string, report models.LocationReport) (*models.Vehicle, error) {
	unlock := p.locks.Lock(vehicleID)
	defer unlock()

	vehicle, err := p.store.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsActive {
		return nil, errs.NewNotFound("vehicle", vehicleID)
	}

	now := p.now().UTC()
	if err := validation.LocationReport(report, now); err != nil {
		return nil, err
	}

	pos := models.Position{
		Lat:        report.Lat,
		Lon:        report.Lon,
		ObservedAt: now,
	}
	if report.Speed != nil {
		pos.Speed = *report.Speed
	}
	if report.Direction != nil {
		pos.Heading = *report.Direction
	} else if vehicle.Position != nil {
		pos.Heading = vehicle.Position.Heading
	}
	if report.FuelLevel != nil {
		pos.FuelLevel = *report.FuelLevel
	} else if vehicle.Position != nil {
		pos.FuelLevel = vehicle.Position.FuelLevel
	}

	updated, err := p.store.UpdateVehiclePosition(ctx, vehicleID, pos)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"number":     updated.Number,
		"lat":        pos.Lat,
		"lon":        pos.Lon,
		"speed":      pos.Speed,
	}).Debug("Location updated")

	p.emitDerivedEvents(updated, report)
	return updated, nil
}

func (p *Pipeline) emitDerivedEvents(vehicle *models.Vehicle, report models.LocationReport) {
	if p.notifier == nil {
		return
	}

	if report.Speed != nil && *report.Speed > 0 {
		event := models.NewNotificationEvent(models.NotifyVehicleDeparted,
			fmt.Sprintf("Vehicle %s is on the move", vehicle.Number),
			map[string]string{
				"vehicleId":     vehicle.ID,
				"vehicleNumber": vehicle.Number,
				"lat":           fmt.Sprintf("%.6f", report.Lat),
				"lon":           fmt.Sprintf("%.6f", report.Lon),
				"speed":         fmt.Sprintf("%.1f", *report.Speed),
			},
			models.RoleTarget(models.RoleStudent))
		p.notifier.Publish(event.Target, event)
	}

	if report.FuelLevel != nil && *report.FuelLevel <= LowFuelThreshold {
		event := models.NewNotificationEvent(models.NotifyFuelLow,
			fmt.Sprintf("Vehicle %s fuel level is at %.0f%%", vehicle.Number, *report.FuelLevel),
			map[string]string{
				"vehicleId":     vehicle.ID,
				"vehicleNumber": vehicle.Number,
				"fuelLevel":     fmt.Sprintf("%.0f", *report.FuelLevel),
			},
			models.RoleTarget(models.RoleAdmin))
		p.notifier.Publish(event.Target, event)
	}
}

// TrackedVehicles lists active vehicles that have reported a location.
func (p *Pipeline) TrackedVehicles(ctx context.Context) ([]models.Vehicle, error) {
	return p.store.FindVehicles(ctx, models.VehicleFilter{
		ActiveOnly:   true,
		WithPosition: true,
	})
}

// TrackedVehiclesByUniversity lists tracked vehicles for one university.
func (p *Pipeline) TrackedVehiclesByUniversity(ctx context.Context, university string) ([]models.Vehicle, error) {
	return p.store.FindVehicles(ctx, models.VehicleFilter{
		ActiveOnly:   true,
		WithPosition: true,
		University:   university,
	})
}
