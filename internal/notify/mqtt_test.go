package notify

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univfleet/vehicle-tracking/internal/models"
)

func TestNewMQTTMirror_UnreachableBroker(t *testing.T) {
	mirror, err := NewMQTTMirror("tcp://127.0.0.1:1", "fleet-test")
	assert.Error(t, err)
	assert.Nil(t, mirror)
}

// Integration test (requires a running MQTT broker)
func TestMQTTMirror_Integration(t *testing.T) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		t.Skip("MQTT_BROKER not set, skipping integration test")
	}

	mirror, err := NewMQTTMirror(broker, "fleet-test")
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer mirror.Close()

	event := models.NewNotificationEvent(models.NotifyVehicleArrived,
		"Vehicle STU-001 has arrived at Main Gate", nil, models.RoleTarget(models.RoleStudent))
	// Fire-and-forget publish must not error or block.
	mirror.MirrorEvent(event)
	require.NotNil(t, mirror)
}
