// Package audit runs the periodic consistency scan that reconciles what the
// document backend's check-then-act writes cannot prevent: duplicate active
// vehicle numbers and drivers referenced by more than one active vehicle.
package audit

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/db"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// Report summarizes one audit pass.
type Report struct {
	DuplicateNumbers    []string
	ConflictingDrivers  []string
	AssignmentsRepaired int
}

// Auditor scans the store on an interval.
type Auditor struct {
	store    db.VehicleStore
	interval time.Duration
}

// New creates an auditor.
func New(store db.VehicleStore, interval time.Duration) *Auditor {
	return &Auditor{store: store, interval: interval}
}

// Run scans until the context is cancelled.
func (a *Auditor) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Scan(ctx); err != nil {
				log.WithError(err).Error("Audit scan failed")
			}
		}
	}
}

// Scan performs one pass. Duplicate numbers are reported but left alone:
// which record is authoritative is an operator decision. Assignment
// conflicts are repaired by keeping the earliest-created vehicle and
// clearing the driver reference on the rest.
func (a *Auditor) Scan(ctx context.Context) (*Report, error) {
	vehicles, err := a.store.FindVehicles(ctx, models.VehicleFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	report := &Report{}

	byNumber := map[string]int{}
	for i := range vehicles {
		byNumber[vehicles[i].Number]++
	}
	for number, count := range byNumber {
		if count > 1 {
			report.DuplicateNumbers = append(report.DuplicateNumbers, number)
			log.WithFields(log.Fields{"number": number, "count": count}).
				Warn("Audit: duplicate active vehicle number")
		}
	}
	sort.Strings(report.DuplicateNumbers)

	byDriver := map[string][]models.Vehicle{}
	for i := range vehicles {
		if vehicles[i].DriverID != nil {
			byDriver[*vehicles[i].DriverID] = append(byDriver[*vehicles[i].DriverID], vehicles[i])
		}
	}
	for driverID, assigned := range byDriver {
		if len(assigned) < 2 {
			continue
		}
		report.ConflictingDrivers = append(report.ConflictingDrivers, driverID)
		log.WithFields(log.Fields{"driver_id": driverID, "vehicles": len(assigned)}).
			Warn("Audit: driver referenced by multiple active vehicles")

		sort.Slice(assigned, func(i, j int) bool {
			return assigned[i].CreatedAt.Before(assigned[j].CreatedAt)
		})
		for _, v := range assigned[1:] {
			if err := a.store.ClearVehicleDriver(ctx, v.ID); err != nil {
				log.WithError(err).WithField("vehicle_id", v.ID).
					Error("Audit: failed to clear duplicate assignment")
				continue
			}
			report.AssignmentsRepaired++
		}
	}
	sort.Strings(report.ConflictingDrivers)

	return report, nil
}
