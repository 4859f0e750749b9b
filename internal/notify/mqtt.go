package notify

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/models"
)

// MQTTMirror republishes every event to an MQTT broker so external
// consumers (dashboards, recorders) can follow the stream. Publishes are
// qos 0 and fire-and-forget: a broker outage never affects fan-out.
type MQTTMirror struct {
	client mqtt.Client
}

// NewMQTTMirror connects to the broker.
func NewMQTTMirror(broker, clientID string) (*MQTTMirror, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTMirror{client: client}, nil
}

// MirrorEvent publishes the event to fleet/notifications/<target>.
func (m *MQTTMirror) MirrorEvent(event models.NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warn("Failed to marshal event for mirror")
		return
	}
	topic := "fleet/notifications/" + string(event.Target)
	m.client.Publish(topic, 0, false, payload)
}

// Close disconnects from the broker.
func (m *MQTTMirror) Close() {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}
