package models

import (
	"strings"
	"time"
)

// NotificationType identifies the kind of event pushed to subscribers. Each
// type carries a fixed title and an emoji plus a priority hint; the metadata
// does not change delivery semantics.
type NotificationType string

const (
	NotifyVehicleArrived      NotificationType = "VEHICLE_ARRIVED"
	NotifyVehicleDeparted     NotificationType = "VEHICLE_DEPARTED"
	NotifyRouteChanged        NotificationType = "ROUTE_CHANGED"
	NotifyEmergencyAlert      NotificationType = "EMERGENCY_ALERT"
	NotifyMaintenanceReminder NotificationType = "MAINTENANCE_REMINDER"
	NotifyFuelLow             NotificationType = "FUEL_LOW"
	NotifyGeneralAnnouncement NotificationType = "GENERAL_ANNOUNCEMENT"
)

type notificationMeta struct {
	title    string
	emoji    string
	priority int
}

// PriorityHigh marks events delivered ahead of queued traffic. This is a
// transport-level hint, not a cross-topic ordering guarantee.
const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

var notificationMetas = map[NotificationType]notificationMeta{
	NotifyVehicleArrived:      {"Vehicle Arrived", "🚌", PriorityNormal},
	NotifyVehicleDeparted:     {"Vehicle Departed", "🚀", PriorityNormal},
	NotifyRouteChanged:        {"Route Changed", "🛣️", PriorityNormal},
	NotifyEmergencyAlert:      {"Emergency Alert", "🚨", PriorityHigh},
	NotifyMaintenanceReminder: {"Maintenance Due", "🔧", PriorityNormal},
	NotifyFuelLow:             {"Low Fuel", "⛽", PriorityNormal},
	NotifyGeneralAnnouncement: {"Announcement", "📢", PriorityNormal},
}

// Title returns the emoji-prefixed display title for the type.
func (t NotificationType) Title() string {
	meta, ok := notificationMetas[t]
	if !ok {
		return string(t)
	}
	return meta.emoji + " " + meta.title
}

// Priority returns the delivery priority hint for the type.
func (t NotificationType) Priority() int {
	return notificationMetas[t].priority
}

// Target addresses either a role topic or a single user's queue.
type Target string

// RoleTarget addresses every connected subscriber of a role.
func RoleTarget(role Role) Target {
	return Target(role.Topic())
}

// UserTarget addresses one user's personal queue.
func UserTarget(userID string) Target {
	return Target("user_" + userID)
}

// IsRoleTopic reports whether the target is a role broadcast channel.
func (t Target) IsRoleTopic() bool {
	return strings.HasPrefix(string(t), "role_")
}

// NotificationEvent is the payload pushed over the realtime channel.
type NotificationEvent struct {
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	Target    Target            `json:"target"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewNotificationEvent builds an event with the type's title template applied.
func NewNotificationEvent(t NotificationType, message string, data map[string]string, target Target) NotificationEvent {
	if data == nil {
		data = map[string]string{}
	}
	return NotificationEvent{
		Type:      t,
		Title:     t.Title(),
		Message:   message,
		Data:      data,
		Target:    target,
		Timestamp: time.Now().UTC(),
	}
}
