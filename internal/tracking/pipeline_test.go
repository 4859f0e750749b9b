package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univfleet/vehicle-tracking/internal/db/dbtest"
	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/fleet"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (p *recordingPublisher) Publish(target models.Target, event models.NotificationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	event.Target = target
	p.events = append(p.events, event)
}

func (p *recordingPublisher) byType(t models.NotificationType) []models.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []models.NotificationEvent{}
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func newTestPipeline(t *testing.T) (*Pipeline, *dbtest.Store, *recordingPublisher) {
	t.Helper()
	store := dbtest.NewStore()
	pub := &recordingPublisher{}
	return NewPipeline(store, pub, fleet.NewVehicleLocks()), store, pub
}

func seedVehicle(t *testing.T, store *dbtest.Store, number string) *models.Vehicle {
	t.Helper()
	v, err := store.CreateVehicle(context.Background(), &models.Vehicle{
		Number:   number,
		Capacity: 30,
		Type:     models.TypeStudentBus,
		Status:   models.StatusActive,
	})
	require.NoError(t, err)
	return v
}

func TestPipeline_UpdateLocation(t *testing.T) {
	pipeline, store, _ := newTestPipeline(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, store, "STU-001")

	updated, err := pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat:       39.9334,
		Lon:       32.8597,
		Speed:     floatPtr(42),
		Direction: strPtr("N"),
		FuelLevel: floatPtr(75),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Position)
	assert.Equal(t, 39.9334, updated.Position.Lat)
	assert.Equal(t, 32.8597, updated.Position.Lon)
	assert.Equal(t, 42.0, updated.Position.Speed)
	assert.Equal(t, "N", updated.Position.Heading)
	assert.Equal(t, 75.0, updated.Position.FuelLevel)
	assert.False(t, updated.Position.ObservedAt.IsZero())
}

func TestPipeline_UpdateLocation_InheritsPriorFields(t *testing.T) {
	pipeline, store, _ := newTestPipeline(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, store, "STU-001")

	_, err := pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 39.9, Lon: 32.8, Direction: strPtr("E"), FuelLevel: floatPtr(60)})
	require.NoError(t, err)

	// A report without heading or fuel keeps the last known values.
	updated, err := pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 39.91, Lon: 32.81})
	require.NoError(t, err)
	assert.Equal(t, "E", updated.Position.Heading)
	assert.Equal(t, 60.0, updated.Position.FuelLevel)
}

func TestPipeline_UpdateLocation_RejectsInvalidWithoutPartialWrite(t *testing.T) {
	pipeline, store, _ := newTestPipeline(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, store, "STU-001")

	_, err := pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 39.9, Lon: 32.8, Speed: floatPtr(40)})
	require.NoError(t, err)
	before, err := store.FindVehicleByID(ctx, vehicle.ID)
	require.NoError(t, err)

	_, err = pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 95, Lon: 32.8, Speed: floatPtr(500)})
	require.Error(t, err)
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "lat")
	assert.Contains(t, ve.Fields, "speed")

	// The stored position is exactly what it was before the bad report.
	after, err := store.FindVehicleByID(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Position, after.Position)
}

func TestPipeline_UpdateLocation_StaleReport(t *testing.T) {
	pipeline, store, _ := newTestPipeline(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, store, "STU-001")

	fixed := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	pipeline.now = func() time.Time { return fixed }

	_, err := pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 39.9, Lon: 32.8, ReportedAt: fixed.Add(-11 * time.Minute)})
	require.Error(t, err)
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "reported_at")
}

func TestPipeline_UpdateLocation_UnknownVehicle(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t)

	_, err := pipeline.UpdateLocation(context.Background(), "veh-missing", models.LocationReport{
		Lat: 39.9, Lon: 32.8})
	require.Error(t, err)
	_, ok := errs.AsNotFound(err)
	assert.True(t, ok)
}

func TestPipeline_UpdateLocation_DeletedVehicle(t *testing.T) {
	pipeline, store, _ := newTestPipeline(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, store, "STU-001")
	require.NoError(t, store.SoftDeleteVehicle(ctx, vehicle.ID))

	_, err := pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{Lat: 39.9, Lon: 32.8})
	require.Error(t, err)
	_, ok := errs.AsNotFound(err)
	assert.True(t, ok)
}

func TestPipeline_DepartedEvent(t *testing.T) {
	pipeline, store, pub := newTestPipeline(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, store, "STU-001")

	// A stationary report emits nothing.
	_, err := pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 39.9, Lon: 32.8, Speed: floatPtr(0)})
	require.NoError(t, err)
	assert.Empty(t, pub.byType(models.NotifyVehicleDeparted))

	_, err = pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 39.9, Lon: 32.8, Speed: floatPtr(25)})
	require.NoError(t, err)

	events := pub.byType(models.NotifyVehicleDeparted)
	require.Len(t, events, 1)
	assert.Equal(t, models.RoleTarget(models.RoleStudent), events[0].Target)
	assert.Equal(t, "STU-001", events[0].Data["vehicleNumber"])
	assert.Equal(t, "25.0", events[0].Data["speed"])
}

func TestPipeline_FuelLowEvent(t *testing.T) {
	pipeline, store, pub := newTestPipeline(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, store, "STU-001")

	_, err := pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 39.9, Lon: 32.8, FuelLevel: floatPtr(40)})
	require.NoError(t, err)
	assert.Empty(t, pub.byType(models.NotifyFuelLow))

	_, err = pipeline.UpdateLocation(ctx, vehicle.ID, models.LocationReport{
		Lat: 39.9, Lon: 32.8, FuelLevel: floatPtr(LowFuelThreshold)})
	require.NoError(t, err)

	events := pub.byType(models.NotifyFuelLow)
	require.Len(t, events, 1)
	assert.Equal(t, models.RoleTarget(models.RoleAdmin), events[0].Target)
}

func TestPipeline_SharesVehicleLocksWithFleet(t *testing.T) {
	store := dbtest.NewStore()
	locks := fleet.NewVehicleLocks()
	pipeline := NewPipeline(store, nil, locks)
	vehicle := seedVehicle(t, store, "STU-001")

	// Simulate a fleet mutation holding the vehicle's lock; the location
	// report for the same vehicle must block until it is released.
	unlock := locks.Lock(vehicle.ID)

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.UpdateLocation(context.Background(), vehicle.ID,
			models.LocationReport{Lat: 39.9, Lon: 32.8})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("location update ran while the vehicle lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("location update never completed after the lock was released")
	}
}

func TestPipeline_TrackedVehicles(t *testing.T) {
	pipeline, store, _ := newTestPipeline(t)
	ctx := context.Background()

	tracked := seedVehicle(t, store, "STU-001")
	tracked.University = "Ankara University"
	require.NoError(t, store.UpdateVehicle(ctx, tracked))
	seedVehicle(t, store, "STU-002") // never reports

	_, err := pipeline.UpdateLocation(ctx, tracked.ID, models.LocationReport{Lat: 39.9, Lon: 32.8})
	require.NoError(t, err)

	vehicles, err := pipeline.TrackedVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "STU-001", vehicles[0].Number)

	byUniversity, err := pipeline.TrackedVehiclesByUniversity(ctx, "Ankara University")
	require.NoError(t, err)
	assert.Len(t, byUniversity, 1)

	none, err := pipeline.TrackedVehiclesByUniversity(ctx, "Other University")
	require.NoError(t, err)
	assert.Empty(t, none)
}
