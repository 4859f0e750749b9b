// Simulator drives a small fleet of campus shuttles against a running
// server: it creates vehicles, then posts location reports along looping
// routes between campus stops so the tracking and notification paths have
// live traffic to chew on.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/univfleet/vehicle-tracking/internal/auth"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

type point struct {
	Lat float64
	Lon float64
}

type stop struct {
	Name string
	Loc  point
}

// Campus stops around the Ankara university district.
var campusStops = []stop{
	{"Main Gate", point{39.9334, 32.8597}},
	{"Engineering Faculty", point{39.9406, 32.8541}},
	{"Library", point{39.9289, 32.8651}},
	{"Dormitories", point{39.9251, 32.8463}},
	{"Sports Complex", point{39.9440, 32.8705}},
	{"Medical Faculty", point{39.9187, 32.8552}},
	{"Science Faculty", point{39.9372, 32.8778}},
}

var vehicleTypes = []models.VehicleType{
	models.TypeStudentBus,
	models.TypeTeacherBus,
	models.TypeOfficeAdmin,
	models.TypeGeneralTransport,
}

func numberPrefix(t models.VehicleType) string {
	switch t {
	case models.TypeStudentBus:
		return "STU"
	case models.TypeTeacherBus:
		return "TCH"
	case models.TypeOfficeAdmin:
		return "OFC"
	default:
		return "GEN"
	}
}

func jitter(base point, meters float64) point {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return point{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func haversineKm(a, b point) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

func lerp(a, b point, t float64) point {
	return point{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

func heading(a, b point) string {
	dLat := b.Lat - a.Lat
	dLon := b.Lon - a.Lon
	if math.Abs(dLat) > math.Abs(dLon) {
		if dLat > 0 {
			return "N"
		}
		return "S"
	}
	if dLon > 0 {
		return "E"
	}
	return "W"
}

var authToken string

func authorizedPost(url string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func createVehicle(apiURL string, seq int) (string, error) {
	vtype := vehicleTypes[rand.Intn(len(vehicleTypes))]
	req := models.VehicleRequest{
		Number:     fmt.Sprintf("%s-%03d", numberPrefix(vtype), 100+seq),
		Capacity:   20 + rand.Intn(30),
		Type:       vtype,
		Status:     models.StatusActive,
		University: "Ankara University",
		RouteName:  fmt.Sprintf("Campus Loop %d", 1+seq%3),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	resp, err := authorizedPost(apiURL+"/vehicles", bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("vehicle creation failed with status %d", resp.StatusCode)
	}
	var created models.Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"vehicle_id": created.ID,
		"number":     created.Number,
		"type":       created.Type,
	}).Info("Created vehicle")
	return created.ID, nil
}

type shuttleState struct {
	VehicleID string
	Position  point
	SpeedKmh  float64
	FuelPct   float64
	NextStop  int
}

func (s *shuttleState) step(tickSec float64) {
	target := jitter(campusStops[s.NextStop].Loc, 30)
	dist := haversineKm(s.Position, target)
	travelKm := s.SpeedKmh * (tickSec / 3600.0)
	if travelKm >= dist {
		s.Position = target
		s.NextStop = (s.NextStop + 1) % len(campusStops)
		return
	}
	s.Position = lerp(s.Position, target, travelKm/dist)
}

func sendReport(apiURL string, s *shuttleState) {
	dir := heading(s.Position, campusStops[s.NextStop].Loc)
	report := models.LocationReport{
		Lat:        s.Position.Lat,
		Lon:        s.Position.Lon,
		Speed:      &s.SpeedKmh,
		Direction:  &dir,
		FuelLevel:  &s.FuelPct,
		ReportedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(report)
	if err != nil {
		log.WithError(err).Error("Failed to marshal location report")
		return
	}
	resp, err := authorizedPost(apiURL+"/tracking/location/"+s.VehicleID, bytes.NewBuffer(data))
	if err != nil {
		log.WithError(err).Error("Failed to send location report")
		return
	}
	defer resp.Body.Close()
	log.WithFields(log.Fields{
		"vehicle_id": s.VehicleID,
		"status":     resp.Status,
		"fuel":       fmt.Sprintf("%.1f", s.FuelPct),
	}).Debug("Sent location report")
}

func simulateShuttle(apiURL string, s *shuttleState, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		s.SpeedKmh += (rand.Float64()*2 - 1) * 3
		if s.SpeedKmh < 10 {
			s.SpeedKmh = 10
		}
		if s.SpeedKmh > 60 {
			s.SpeedKmh = 60
		}

		s.step(interval.Seconds())

		km := s.SpeedKmh * (interval.Seconds() / 3600.0)
		s.FuelPct -= km * 0.6
		if s.FuelPct < 5 {
			s.FuelPct = 100
		}

		sendReport(apiURL, s)
	}
}

func main() {
	authToken = os.Getenv("SIM_AUTH_TOKEN")
	if authToken == "" {
		// Mint an admin token with the server's shared secret.
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			secret = "default-secret-key-change-in-production"
		}
		token, err := auth.NewService(secret).GenerateToken(&models.User{
			ID:       "simulator",
			Username: "simulator",
			Role:     models.RoleAdmin,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to mint simulator token")
		}
		authToken = token
	}

	fleetSize := 5
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 5 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting shuttle simulation")

	states := make([]*shuttleState, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		vehicleID, err := createVehicle(apiURL, i+1)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		start := jitter(campusStops[rand.Intn(len(campusStops))].Loc, 200)
		states = append(states, &shuttleState{
			VehicleID: vehicleID,
			Position:  start,
			SpeedKmh:  20 + rand.Float64()*20,
			FuelPct:   50 + rand.Float64()*50,
			NextStop:  rand.Intn(len(campusStops)),
		})
	}

	log.WithField("created_vehicles", len(states)).Info("Vehicle creation completed")
	if len(states) == 0 {
		log.Error("No vehicles created. Ensure the API is reachable and the token is valid. Exiting.")
		return
	}

	for _, s := range states {
		go simulateShuttle(apiURL, s, interval)
	}

	select {}
}
