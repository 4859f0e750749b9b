package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

const userColumns = `user_id, username, password_hash, role, first_name, last_name,
	license_number, is_active, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FirstName,
		&u.LastName, &u.LicenseNumber, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO users (user_id, username, password_hash, role, first_name, last_name, license_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns + `;
	`
	created, err := scanUser(s.pool.QueryRow(ctx, query,
		id, u.Username, u.PasswordHash, u.Role, u.FirstName, u.LastName, u.LicenseNumber))
	if err != nil {
		return nil, translatePgError(err, "user", u.Username)
	}
	return created, nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NewNotFound("user", id)
		}
		return nil, errs.NewInternal(err)
	}
	return u, nil
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1;`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NewNotFound("user", username)
		}
		return nil, errs.NewInternal(err)
	}
	return u, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&count); err != nil {
		return 0, errs.NewInternal(err)
	}
	return count, nil
}
