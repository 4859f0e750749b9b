package fleet

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univfleet/vehicle-tracking/internal/db/dbtest"
	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// recordingPublisher captures published events for assertions.
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

func newTestService(t *testing.T) (*Service, *dbtest.Store, *recordingPublisher) {
	t.Helper()
	store := dbtest.NewStore()
	pub := &recordingPublisher{}
	return NewService(store, pub), store, pub
}

func createDriver(t *testing.T, store *dbtest.Store, username string) *models.User {
	t.Helper()
	driver, err := store.CreateUser(context.Background(), &models.User{
		Username: username,
		Role:     models.RoleDriver,
	})
	require.NoError(t, err)
	return driver
}

func TestService_CreateVehicle(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number:     " stu-050 ",
		Capacity:   30,
		Type:       models.TypeStudentBus,
		University: "Ankara University",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	// Number is stored normalized, status defaults to ACTIVE.
	assert.Equal(t, "STU-050", created.Number)
	assert.Equal(t, models.StatusActive, created.Status)
	assert.True(t, created.IsActive)
}

func TestService_CreateVehicle_Validation(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number:   "BAD",
		Capacity: 0,
		Type:     "MINIBUS",
		Status:   "PARKED",
	})
	require.Error(t, err)
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "number")
	assert.Contains(t, ve.Fields, "capacity")
	assert.Contains(t, ve.Fields, "type")
	assert.Contains(t, ve.Fields, "status")
}

func TestService_CreateVehicle_DuplicateNumber(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	req := models.VehicleRequest{Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus}
	_, err := service.CreateVehicle(ctx, req)
	require.NoError(t, err)

	_, err = service.CreateVehicle(ctx, req)
	require.Error(t, err)
	_, ok := errs.AsConflict(err)
	assert.True(t, ok)
}

func TestService_CreateVehicle_WithDriver(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	created, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number:   "STU-002",
		Capacity: 30,
		Type:     models.TypeStudentBus,
		DriverID: &driver.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, created.DriverID)
	assert.Equal(t, driver.ID, *created.DriverID)
}

func TestService_UpdateVehicle_NumberConflict(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)
	second, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-002", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	_, err = service.UpdateVehicle(ctx, second.ID, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.Error(t, err)
	_, ok := errs.AsConflict(err)
	assert.True(t, ok)
}

func TestService_UpdateVehicle_ReassignsDriver(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	first := createDriver(t, store, "driver1")
	second := createDriver(t, store, "driver2")

	created, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus, DriverID: &first.ID})
	require.NoError(t, err)

	updated, err := service.UpdateVehicle(ctx, created.ID, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus, DriverID: &second.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.DriverID)
	assert.Equal(t, second.ID, *updated.DriverID)

	// The first driver is free again.
	_, err = service.VehicleForDriver(ctx, first.ID)
	_, ok := errs.AsNotFound(err)
	assert.True(t, ok)
}

func TestService_UpdateVehicle_DriverOmittedClearsAssignment(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	created, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus, DriverID: &driver.ID})
	require.NoError(t, err)

	updated, err := service.UpdateVehicle(ctx, created.ID, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)
	assert.Nil(t, updated.DriverID)
}

func TestService_UpdateVehicle_ConflictLeavesRecordUnchanged(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	first := createDriver(t, store, "driver1")
	second := createDriver(t, store, "driver2")

	vehicle, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-050", Capacity: 40, Type: models.TypeStudentBus, DriverID: &first.ID})
	require.NoError(t, err)
	_, err = service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-051", Capacity: 30, Type: models.TypeStudentBus, DriverID: &second.ID})
	require.NoError(t, err)

	// Try to grab the other vehicle's driver through a generic update.
	_, err = service.UpdateVehicle(ctx, vehicle.ID, models.VehicleRequest{
		Number: "STU-050", Capacity: 55, Type: models.TypeStudentBus, DriverID: &second.ID})
	require.Error(t, err)
	_, ok := errs.AsConflict(err)
	require.True(t, ok)

	// The rejected update leaves the record exactly as it was: capacity
	// untouched and the original driver still bound.
	after, err := store.FindVehicleByID(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, after.Capacity)
	require.NotNil(t, after.DriverID)
	assert.Equal(t, first.ID, *after.DriverID)
}

func TestService_CreateVehicle_RejectedAssignmentLeavesNothing(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	_, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus, DriverID: &driver.ID})
	require.NoError(t, err)

	// A create whose driver is already taken fails before the insert.
	_, err = service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-002", Capacity: 30, Type: models.TypeStudentBus, DriverID: &driver.ID})
	require.Error(t, err)
	_, ok := errs.AsConflict(err)
	require.True(t, ok)

	_, err = store.FindVehicleByNumber(ctx, "STU-002")
	_, ok = errs.AsNotFound(err)
	assert.True(t, ok)
}

func TestService_UpdateVehicle_RouteChangeNotifiesStudents(t *testing.T) {
	service, _, pub := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus, RouteName: "Campus Loop 1"})
	require.NoError(t, err)

	_, err = service.UpdateVehicle(ctx, created.ID, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus, RouteName: "Campus Loop 2"})
	require.NoError(t, err)

	events := pub.byType(models.NotifyRouteChanged)
	require.Len(t, events, 1)
	assert.Equal(t, models.RoleTarget(models.RoleStudent), events[0].Target)
	assert.Equal(t, "Campus Loop 2", events[0].Data["route"])
}

func TestService_UpdateStatus(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "MNT-100", Capacity: 5, Type: models.TypeGeneralTransport})
	require.NoError(t, err)

	updated, err := service.UpdateStatus(ctx, created.ID, models.StatusMaintenance)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMaintenance, updated.Status)

	_, err = service.UpdateStatus(ctx, created.ID, "PARKED")
	require.Error(t, err)
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)
}

func TestService_DeleteVehicle(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	require.NoError(t, service.DeleteVehicle(ctx, created.ID))

	// Soft-deleted vehicles disappear from reads and listings.
	_, err = service.GetVehicle(ctx, created.ID)
	_, ok := errs.AsNotFound(err)
	assert.True(t, ok)

	vehicles, err := service.ListVehicles(ctx, models.VehicleFilter{})
	require.NoError(t, err)
	assert.Empty(t, vehicles)

	// The record itself survives for audit lookups.
	raw, err := store.FindVehicleByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, raw.IsActive)
}

func TestService_GetVehicleByNumber(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	// Lookup normalizes the same way create does.
	found, err := service.GetVehicleByNumber(ctx, " stu-001 ")
	require.NoError(t, err)
	assert.Equal(t, "STU-001", found.Number)
}

func TestService_Stats(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	_, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus, DriverID: &driver.ID})
	require.NoError(t, err)
	second, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-002", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)
	_, err = service.UpdateStatus(ctx, second.ID, models.StatusMaintenance)
	require.NoError(t, err)

	stats, err := service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Assigned)
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusActive])
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusMaintenance])
}
