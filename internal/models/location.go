package models

import (
	"time"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// LocationReport is a single position report submitted by a driver client.
// It is validated and folded into the vehicle record, not stored as-is.
type LocationReport struct {
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Speed      *float64 `json:"speed,omitempty"`
	Direction  *string  `json:"direction,omitempty"`
	FuelLevel  *float64 `json:"fuelLevel,omitempty"`
	ReportedAt time.Time `json:"reported_at,omitempty"`
}
