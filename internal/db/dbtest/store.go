// Package dbtest provides an in-memory Store for unit tests. It mirrors the
// Postgres backend's guarantees (checks and writes under one lock) so service
// tests can assert invariant behavior without a database.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/univfleet/vehicle-tracking/internal/db"
	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// Store is a mutex-guarded in-memory implementation of db.Store.
type Store struct {
	mu       sync.Mutex
	nextID   int
	vehicles map[string]*models.Vehicle
	users    map[string]*models.User
}

var _ db.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		vehicles: make(map[string]*models.Vehicle),
		users:    make(map[string]*models.User),
	}
}

func (s *Store) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Store) Ping(ctx context.Context) error  { return nil }
func (s *Store) Close(ctx context.Context) error { return nil }

func cloneVehicle(v *models.Vehicle) *models.Vehicle {
	out := *v
	if v.DriverID != nil {
		driverID := *v.DriverID
		out.DriverID = &driverID
	}
	if v.Position != nil {
		pos := *v.Position
		out.Position = &pos
	}
	return &out
}

// PutVehicle stores a vehicle verbatim, bypassing every invariant check.
// Tests use it to seed inconsistent states for audit scans.
func (s *Store) PutVehicle(v *models.Vehicle) *models.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneVehicle(v)
	if stored.ID == "" {
		stored.ID = s.newID("veh")
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = time.Now().UTC()
	s.vehicles[stored.ID] = stored
	return cloneVehicle(stored)
}

func (s *Store) CreateVehicle(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.vehicles {
		if existing.Number == v.Number {
			return nil, errs.NewConflict("vehicle number already exists: %s", v.Number)
		}
		if v.DriverID != nil && existing.IsActive && existing.DriverID != nil && *existing.DriverID == *v.DriverID {
			return nil, errs.NewConflict("driver is already assigned to another vehicle: %s", existing.Number)
		}
	}
	stored := cloneVehicle(v)
	stored.ID = s.newID("veh")
	stored.IsActive = true
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.vehicles[stored.ID] = stored
	return cloneVehicle(stored), nil
}

func (s *Store) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.vehicles[v.ID]
	if !ok {
		return errs.NewNotFound("vehicle", v.ID)
	}
	if v.DriverID != nil {
		for _, other := range s.vehicles {
			if other.ID != v.ID && other.IsActive && other.DriverID != nil && *other.DriverID == *v.DriverID {
				return errs.NewConflict("driver is already assigned to another vehicle: %s", other.Number)
			}
		}
	}
	updated := cloneVehicle(v)
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	updated.Position = stored.Position
	s.vehicles[v.ID] = updated
	return nil
}

func (s *Store) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, errs.NewNotFound("vehicle", id)
	}
	return cloneVehicle(v), nil
}

func (s *Store) FindVehicleByNumber(ctx context.Context, number string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		if v.Number == number {
			return cloneVehicle(v), nil
		}
	}
	return nil, errs.NewNotFound("vehicle", number)
}

func matches(v *models.Vehicle, filter models.VehicleFilter) bool {
	if filter.Type != "" && v.Type != filter.Type {
		return false
	}
	if filter.Status != "" && v.Status != filter.Status {
		return false
	}
	if filter.University != "" && v.University != filter.University {
		return false
	}
	if filter.ActiveOnly && !v.IsActive {
		return false
	}
	if filter.WithPosition && !v.HasPosition() {
		return false
	}
	return true
}

func (s *Store) FindVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Vehicle{}
	for _, v := range s.vehicles {
		if matches(v, filter) {
			out = append(out, *cloneVehicle(v))
		}
	}
	return out, nil
}

func (s *Store) SearchVehicles(ctx context.Context, query string) ([]models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	out := []models.Vehicle{}
	for _, v := range s.vehicles {
		if !v.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(v.Number), q) ||
			strings.Contains(strings.ToLower(v.University), q) ||
			strings.Contains(strings.ToLower(v.RouteName), q) {
			out = append(out, *cloneVehicle(v))
		}
	}
	return out, nil
}

func (s *Store) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		if v.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountVehicles(ctx context.Context, filter models.VehicleFilter) (int64, error) {
	vehicles, _ := s.FindVehicles(ctx, filter)
	return int64(len(vehicles)), nil
}

func (s *Store) CountVehiclesByStatus(ctx context.Context) (map[models.VehicleStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[models.VehicleStatus]int64{}
	for _, v := range s.vehicles {
		if v.IsActive {
			counts[v.Status]++
		}
	}
	return counts, nil
}

func (s *Store) FindVehicleByDriverID(ctx context.Context, driverID string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		if v.IsActive && v.DriverID != nil && *v.DriverID == driverID {
			return cloneVehicle(v), nil
		}
	}
	return nil, errs.NewNotFound("vehicle", "driver "+driverID)
}

func (s *Store) SetVehicleDriver(ctx context.Context, vehicleID, driverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.vehicles[vehicleID]
	if !ok {
		return errs.NewNotFound("vehicle", vehicleID)
	}
	for _, v := range s.vehicles {
		if v.ID != vehicleID && v.IsActive && v.DriverID != nil && *v.DriverID == driverID {
			return errs.NewConflict("driver is already assigned to another vehicle: %s", v.Number)
		}
	}
	target.DriverID = &driverID
	target.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ClearVehicleDriver(ctx context.Context, vehicleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[vehicleID]
	if !ok {
		return errs.NewNotFound("vehicle", vehicleID)
	}
	v.DriverID = nil
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) UpdateVehiclePosition(ctx context.Context, vehicleID string, pos models.Position) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[vehicleID]
	if !ok {
		return nil, errs.NewNotFound("vehicle", vehicleID)
	}
	p := pos
	v.Position = &p
	v.UpdatedAt = time.Now().UTC()
	return cloneVehicle(v), nil
}

func (s *Store) SoftDeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return errs.NewNotFound("vehicle", id)
	}
	v.IsActive = false
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *u
	stored.ID = s.newID("usr")
	stored.IsActive = true
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.NewNotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, errs.NewNotFound("user", username)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}
