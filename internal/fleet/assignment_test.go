package fleet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

func TestService_AssignDriver(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	vehicle, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	require.NoError(t, service.AssignDriver(ctx, vehicle.ID, driver.ID))

	assigned, err := service.VehicleForDriver(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, vehicle.ID, assigned.ID)
}

func TestService_AssignDriver_Exclusive(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	first, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)
	second, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-002", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	require.NoError(t, service.AssignDriver(ctx, first.ID, driver.ID))

	// The same driver cannot be bound to a second active vehicle.
	err = service.AssignDriver(ctx, second.ID, driver.ID)
	require.Error(t, err)
	ce, ok := errs.AsConflict(err)
	require.True(t, ok)
	assert.Contains(t, ce.Reason, "STU-001")
}

func TestService_AssignDriver_SameVehicleNoOp(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	vehicle, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	require.NoError(t, service.AssignDriver(ctx, vehicle.ID, driver.ID))
	// Re-assigning the same pairing succeeds without any change.
	require.NoError(t, service.AssignDriver(ctx, vehicle.ID, driver.ID))
}

func TestService_AssignDriver_NotADriver(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	student, err := store.CreateUser(ctx, &models.User{Username: "student1", Role: models.RoleStudent})
	require.NoError(t, err)

	vehicle, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	err = service.AssignDriver(ctx, vehicle.ID, student.ID)
	require.Error(t, err)
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "driver_id")
}

func TestService_AssignDriver_UnknownDriver(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	vehicle, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	err = service.AssignDriver(ctx, vehicle.ID, "usr-missing")
	require.Error(t, err)
	nf, ok := errs.AsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, "driver", nf.Kind)
}

func TestService_AssignDriver_DeletedVehicle(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	vehicle, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)
	require.NoError(t, service.DeleteVehicle(ctx, vehicle.ID))

	err = service.AssignDriver(ctx, vehicle.ID, driver.ID)
	require.Error(t, err)
	_, ok := errs.AsNotFound(err)
	assert.True(t, ok)
}

func TestService_UnassignDriver(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	driver := createDriver(t, store, "driver1")

	vehicle, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)
	require.NoError(t, service.AssignDriver(ctx, vehicle.ID, driver.ID))

	require.NoError(t, service.UnassignDriver(ctx, vehicle.ID))

	_, err = service.VehicleForDriver(ctx, driver.ID)
	_, ok := errs.AsNotFound(err)
	assert.True(t, ok)

	// The driver can immediately be bound elsewhere.
	second, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-002", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)
	require.NoError(t, service.AssignDriver(ctx, second.ID, driver.ID))
}

func TestService_UnassignDriver_Unassigned(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	vehicle, err := service.CreateVehicle(ctx, models.VehicleRequest{
		Number: "STU-001", Capacity: 30, Type: models.TypeStudentBus})
	require.NoError(t, err)

	// Clearing a vehicle with no driver is not an error.
	assert.NoError(t, service.UnassignDriver(ctx, vehicle.ID))
}
