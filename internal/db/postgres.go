package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// Postgres error codes used to translate constraint violations.
const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

// PostgresStore is the transactional backend. Ids are uuid text, vehicle
// number uniqueness is a schema constraint and the driver reference is a
// foreign key, so duplicate numbers and dangling driver ids are rejected
// atomically at write time.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a connection pool and ensures the schema exists.
func ConnectPostgres(ctx context.Context, uri string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping error: %w", err)
	}
	store := &PostgresStore{pool: pool}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id        TEXT PRIMARY KEY,
		username       TEXT NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		role           TEXT NOT NULL,
		first_name     TEXT NOT NULL DEFAULT '',
		last_name      TEXT NOT NULL DEFAULT '',
		license_number TEXT NOT NULL DEFAULT '',
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		last_login     TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS vehicles (
		vehicle_id   TEXT PRIMARY KEY,
		number       TEXT NOT NULL UNIQUE,
		capacity     INTEGER NOT NULL CHECK (capacity >= 1),
		type         TEXT NOT NULL,
		status       TEXT NOT NULL,
		driver_id    TEXT REFERENCES users(user_id),
		university   TEXT NOT NULL DEFAULT '',
		route_name   TEXT NOT NULL DEFAULT '',
		lat          DOUBLE PRECISION,
		lon          DOUBLE PRECISION,
		speed        DOUBLE PRECISION,
		heading      TEXT,
		fuel_level   DOUBLE PRECISION,
		observed_at  TIMESTAMPTZ,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uq_vehicles_active_driver
		ON vehicles(driver_id) WHERE driver_id IS NOT NULL AND is_active;
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

const vehicleColumns = `vehicle_id, number, capacity, type, status, driver_id,
	university, route_name, lat, lon, speed, heading, fuel_level, observed_at,
	is_active, created_at, updated_at`

// scanVehicle reads one vehicle row, folding the position columns back into
// the embedded Position when a location has been reported.
func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	var lat, lon, speed, fuel *float64
	var heading *string
	var observedAt *time.Time

	err := row.Scan(&v.ID, &v.Number, &v.Capacity, &v.Type, &v.Status, &v.DriverID,
		&v.University, &v.RouteName, &lat, &lon, &speed, &heading, &fuel, &observedAt,
		&v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil && observedAt != nil {
		pos := models.Position{Lat: *lat, Lon: *lon, ObservedAt: *observedAt}
		if speed != nil {
			pos.Speed = *speed
		}
		if heading != nil {
			pos.Heading = *heading
		}
		if fuel != nil {
			pos.FuelLevel = *fuel
		}
		v.Position = &pos
	}
	return &v, nil
}

func translatePgError(err error, kind, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case "users_username_key":
				return errs.NewConflict("username already exists")
			case "uq_vehicles_active_driver":
				return errs.NewConflict("driver is already assigned to another vehicle")
			default:
				return errs.NewConflict("vehicle number already exists")
			}
		case pgFKViolation:
			return errs.NewNotFound("driver", id)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NewNotFound(kind, id)
	}
	return errs.NewInternal(err)
}

func (s *PostgresStore) CreateVehicle(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO vehicles (vehicle_id, number, capacity, type, status, driver_id, university, route_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + vehicleColumns + `;
	`
	created, err := scanVehicle(s.pool.QueryRow(ctx, query,
		id, v.Number, v.Capacity, v.Type, v.Status, v.DriverID, v.University, v.RouteName))
	if err != nil {
		return nil, translatePgError(err, "vehicle", v.Number)
	}
	return created, nil
}

func (s *PostgresStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	query := `
		UPDATE vehicles
		SET number = $2, capacity = $3, type = $4, status = $5, driver_id = $6,
			university = $7, route_name = $8, is_active = $9, updated_at = NOW()
		WHERE vehicle_id = $1;
	`
	tag, err := s.pool.Exec(ctx, query,
		v.ID, v.Number, v.Capacity, v.Type, v.Status, v.DriverID,
		v.University, v.RouteName, v.IsActive)
	if err != nil {
		return translatePgError(err, "vehicle", v.ID)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewNotFound("vehicle", v.ID)
	}
	return nil
}

func (s *PostgresStore) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE vehicle_id = $1;`
	v, err := scanVehicle(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translatePgError(err, "vehicle", id)
	}
	return v, nil
}

func (s *PostgresStore) FindVehicleByNumber(ctx context.Context, number string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE number = $1;`
	v, err := scanVehicle(s.pool.QueryRow(ctx, query, number))
	if err != nil {
		return nil, translatePgError(err, "vehicle", number)
	}
	return v, nil
}

func filterToSQL(filter models.VehicleFilter) (string, []any) {
	clauses := []string{"TRUE"}
	var args []any
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = "+arg(filter.Type))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(filter.Status))
	}
	if filter.University != "" {
		clauses = append(clauses, "university = "+arg(filter.University))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active")
	}
	if filter.WithPosition {
		clauses = append(clauses, "observed_at IS NOT NULL")
	}
	return strings.Join(clauses, " AND "), args
}

func (s *PostgresStore) queryVehicles(ctx context.Context, query string, args ...any) ([]models.Vehicle, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.NewInternal(err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, errs.NewInternal(err)
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewInternal(err)
	}
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}
	return vehicles, nil
}

func (s *PostgresStore) FindVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	where, args := filterToSQL(filter)
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE ` + where + ` ORDER BY created_at;`
	return s.queryVehicles(ctx, query, args...)
}

func (s *PostgresStore) SearchVehicles(ctx context.Context, search string) ([]models.Vehicle, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE is_active
		  AND (number ILIKE $1 OR university ILIKE $1 OR route_name ILIKE $1)
		ORDER BY number;
	`
	return s.queryVehicles(ctx, query, "%"+search+"%")
}

func (s *PostgresStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vehicles WHERE number = $1);`, number).Scan(&exists)
	if err != nil {
		return false, errs.NewInternal(err)
	}
	return exists, nil
}

func (s *PostgresStore) CountVehicles(ctx context.Context, filter models.VehicleFilter) (int64, error) {
	where, args := filterToSQL(filter)
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles WHERE `+where+`;`, args...).Scan(&count)
	if err != nil {
		return 0, errs.NewInternal(err)
	}
	return count, nil
}

func (s *PostgresStore) CountVehiclesByStatus(ctx context.Context) (map[models.VehicleStatus]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM vehicles WHERE is_active GROUP BY status;`)
	if err != nil {
		return nil, errs.NewInternal(err)
	}
	defer rows.Close()

	counts := map[models.VehicleStatus]int64{}
	for rows.Next() {
		var status models.VehicleStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errs.NewInternal(err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewInternal(err)
	}
	return counts, nil
}

func (s *PostgresStore) FindVehicleByDriverID(ctx context.Context, driverID string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE driver_id = $1 AND is_active;`
	v, err := scanVehicle(s.pool.QueryRow(ctx, query, driverID))
	if err != nil {
		return nil, translatePgError(err, "vehicle", "driver "+driverID)
	}
	return v, nil
}

// SetVehicleDriver binds a driver to a vehicle inside a transaction. An
// active vehicle already referencing the driver is locked and re-checked for
// the friendly conflict message, but the check alone cannot serialize two
// first-time assigns: FOR UPDATE over zero rows locks nothing. The partial
// unique index on (driver_id) WHERE is_active is what actually enforces
// exclusivity; a racing write fails with a unique violation translated to
// the same conflict.
func (s *PostgresStore) SetVehicleDriver(ctx context.Context, vehicleID, driverID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.NewInternal(err)
	}
	defer tx.Rollback(ctx)

	var existingID, existingNumber string
	err = tx.QueryRow(ctx,
		`SELECT vehicle_id, number FROM vehicles WHERE driver_id = $1 AND is_active FOR UPDATE;`,
		driverID).Scan(&existingID, &existingNumber)
	if err == nil && existingID != vehicleID {
		return errs.NewConflict("driver is already assigned to another vehicle: %s", existingNumber)
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return errs.NewInternal(err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE vehicles SET driver_id = $2, updated_at = NOW() WHERE vehicle_id = $1;`,
		vehicleID, driverID)
	if err != nil {
		return translatePgError(err, "vehicle", driverID)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewNotFound("vehicle", vehicleID)
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.NewInternal(err)
	}
	return nil
}

func (s *PostgresStore) ClearVehicleDriver(ctx context.Context, vehicleID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vehicles SET driver_id = NULL, updated_at = NOW() WHERE vehicle_id = $1;`,
		vehicleID)
	if err != nil {
		return errs.NewInternal(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewNotFound("vehicle", vehicleID)
	}
	return nil
}

func (s *PostgresStore) UpdateVehiclePosition(ctx context.Context, vehicleID string, pos models.Position) (*models.Vehicle, error) {
	query := `
		UPDATE vehicles
		SET lat = $2, lon = $3, speed = $4, heading = $5, fuel_level = $6,
			observed_at = $7, updated_at = NOW()
		WHERE vehicle_id = $1
		RETURNING ` + vehicleColumns + `;
	`
	v, err := scanVehicle(s.pool.QueryRow(ctx, query,
		vehicleID, pos.Lat, pos.Lon, pos.Speed, pos.Heading, pos.FuelLevel, pos.ObservedAt))
	if err != nil {
		return nil, translatePgError(err, "vehicle", vehicleID)
	}
	return v, nil
}

func (s *PostgresStore) SoftDeleteVehicle(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vehicles SET is_active = FALSE, updated_at = NOW() WHERE vehicle_id = $1;`, id)
	if err != nil {
		return errs.NewInternal(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NewNotFound("vehicle", id)
	}
	return nil
}
