// Package validation holds the input validators for vehicle numbers and
// location reports. Constants match the limits the fleet operates under.
package validation

import (
	"regexp"
	"strings"

	"github.com/univfleet/vehicle-tracking/internal/errs"
)

// VehicleNumberPattern is the canonical format: 2-3 uppercase letters, a
// hyphen, then 3-4 digits (e.g. "STU-001").
var VehicleNumberPattern = regexp.MustCompile(`^[A-Z]{2,3}-\d{3,4}$`)

// validPrefixes is the fixed allow-list of fleet prefixes.
var validPrefixes = map[string]bool{
	"STU": true, // student buses
	"TCH": true, // teacher buses
	"OFC": true, // office vehicles
	"GEN": true, // general transport
	"EMG": true, // emergency
	"MNT": true, // maintenance
}

// placeholderValues are substrings that mark test or placeholder numbers.
var placeholderValues = []string{"TEST", "DEMO", "SAMPLE", "EXAMPLE", "NULL", "UNDEFINED"}

// NormalizeVehicleNumber trims whitespace and uppercases a raw number.
func NormalizeVehicleNumber(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// VehicleNumber validates a raw vehicle number and returns its normalized
// form, or a field-keyed validation error.
func VehicleNumber(raw string) (string, error) {
	number := NormalizeVehicleNumber(raw)
	if number == "" {
		return "", errs.NewValidation("number", "vehicle number is required")
	}
	if !VehicleNumberPattern.MatchString(number) {
		return "", errs.NewValidation("number",
			"vehicle number must follow pattern: 2-3 letters, hyphen, 3-4 digits (e.g. STU-001)")
	}
	for _, placeholder := range placeholderValues {
		if strings.Contains(number, placeholder) {
			return "", errs.NewValidation("number",
				"vehicle number cannot contain test or placeholder values")
		}
	}
	prefix := strings.SplitN(number, "-", 2)[0]
	if !validPrefixes[prefix] {
		return "", errs.NewValidation("number",
			"invalid vehicle prefix, use: STU, TCH, OFC, GEN, EMG or MNT")
	}
	return number, nil
}
