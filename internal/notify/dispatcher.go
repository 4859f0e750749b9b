package notify

import (
	"fmt"
	"strconv"
	"time"

	"github.com/univfleet/vehicle-tracking/internal/models"
)

// Dispatcher builds the safety-critical and arrival events from structured
// inputs and hands them to the hub. It is a thin specialization of fan-out:
// the priority of EMERGENCY_ALERT comes from the event type's metadata.
type Dispatcher struct {
	hub *Hub
}

// NewDispatcher creates a dispatcher over the hub.
func NewDispatcher(hub *Hub) *Dispatcher {
	return &Dispatcher{hub: hub}
}

func nowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// EmergencyAlert notifies the admin topic of an emergency on a vehicle.
func (d *Dispatcher) EmergencyAlert(vehicleNumber, location, details string) {
	message := fmt.Sprintf("Emergency alert for vehicle %s at %s: %s",
		vehicleNumber, location, details)
	event := models.NewNotificationEvent(models.NotifyEmergencyAlert, message,
		map[string]string{
			"type":          "emergency",
			"vehicleNumber": vehicleNumber,
			"location":      location,
			"timestamp":     nowMillis(),
		},
		models.RoleTarget(models.RoleAdmin))
	d.hub.Publish(event.Target, event)
}

// VehicleArrival notifies students waiting at a stop.
func (d *Dispatcher) VehicleArrival(vehicleNumber, stopName, route string) {
	message := fmt.Sprintf("Vehicle %s has arrived at %s", vehicleNumber, stopName)
	event := models.NewNotificationEvent(models.NotifyVehicleArrived, message,
		map[string]string{
			"type":          "arrival",
			"vehicleNumber": vehicleNumber,
			"stopName":      stopName,
			"route":         route,
			"timestamp":     nowMillis(),
		},
		models.RoleTarget(models.RoleStudent))
	d.hub.Publish(event.Target, event)
}

// MaintenanceReminder notifies admins that a vehicle's service is due.
func (d *Dispatcher) MaintenanceReminder(vehicleNumber, dueDate string) {
	message := fmt.Sprintf("Vehicle %s maintenance is due on %s", vehicleNumber, dueDate)
	event := models.NewNotificationEvent(models.NotifyMaintenanceReminder, message,
		map[string]string{
			"type":          "maintenance",
			"vehicleNumber": vehicleNumber,
			"dueDate":       dueDate,
			"timestamp":     nowMillis(),
		},
		models.RoleTarget(models.RoleAdmin))
	d.hub.Publish(event.Target, event)
}

// Announcement broadcasts a general message to one role topic.
func (d *Dispatcher) Announcement(role models.Role, message string) {
	event := models.NewNotificationEvent(models.NotifyGeneralAnnouncement, message,
		map[string]string{"timestamp": nowMillis()},
		models.RoleTarget(role))
	d.hub.Publish(event.Target, event)
}
