package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/univfleet/vehicle-tracking/internal/errs"
)

func TestVehicleNumber_Valid(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"STU-001", "STU-001"},
		{"TCH-1234", "TCH-1234"},
		{"OFC-100", "OFC-100"},
		{"GEN-9999", "GEN-9999"},
		{"EMG-911", "EMG-911"},
		{"MNT-042", "MNT-042"},
		// Normalization: trimming and uppercasing happen before matching.
		{"  stu-050  ", "STU-050"},
		{"tch-300", "TCH-300"},
	}
	for _, tt := range tests {
		got, err := VehicleNumber(tt.raw)
		assert.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestVehicleNumber_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no hyphen", "STU001"},
		{"one letter", "S-001"},
		{"four letters", "STUD-001"},
		{"two digits", "STU-01"},
		{"five digits", "STU-00001"},
		{"lowercase digits suffix", "STU-00a"},
		{"unknown prefix", "ABC-001"},
		{"trailing garbage", "STU-001X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VehicleNumber(tt.raw)
			assert.Error(t, err)
			ve, ok := errs.AsValidation(err)
			assert.True(t, ok)
			assert.Contains(t, ve.Fields, "number")
		})
	}
}

func TestVehicleNumber_Placeholders(t *testing.T) {
	// Placeholder detection runs on the normalized value, so case does
	// not matter.
	for _, raw := range []string{"TEST-001", "test-001", "DEMO-123"} {
		_, err := VehicleNumber(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
