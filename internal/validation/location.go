package validation

import (
	"fmt"
	"time"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// Location report limits.
const (
	MinLatitude = -90.0
	MaxLatitude = 90.0

	MinLongitude = -180.0
	MaxLongitude = 180.0

	// MaxSpeedKmh is the maximum realistic vehicle speed.
	MaxSpeedKmh = 150.0

	// MaxReportAge is how old a location report may be before it is
	// rejected as stale.
	MaxReportAge = 10 * time.Minute
)

// LocationReport validates every field of a report against the ranges above.
// All violations are collected into one field-keyed validation error so a
// client can fix them in a single round trip.
func LocationReport(report models.LocationReport, now time.Time) error {
	fields := map[string]string{}

	if report.Lat < MinLatitude || report.Lat > MaxLatitude {
		fields["lat"] = fmt.Sprintf("latitude must be between %.0f and %.0f", MinLatitude, MaxLatitude)
	}
	if report.Lon < MinLongitude || report.Lon > MaxLongitude {
		fields["lon"] = fmt.Sprintf("longitude must be between %.0f and %.0f", MinLongitude, MaxLongitude)
	}
	if report.Speed != nil && (*report.Speed < 0 || *report.Speed > MaxSpeedKmh) {
		fields["speed"] = fmt.Sprintf("speed must be between 0 and %.0f km/h", MaxSpeedKmh)
	}
	if report.FuelLevel != nil && (*report.FuelLevel < 0 || *report.FuelLevel > 100) {
		fields["fuelLevel"] = "fuel level must be between 0 and 100"
	}
	if !report.ReportedAt.IsZero() {
		age := now.Sub(report.ReportedAt)
		if age > MaxReportAge {
			fields["reported_at"] = fmt.Sprintf("location report older than %s", MaxReportAge)
		}
		if age < 0 {
			fields["reported_at"] = "location report timestamp is in the future"
		}
	}

	if len(fields) > 0 {
		return &errs.ValidationError{Fields: fields}
	}
	return nil
}
