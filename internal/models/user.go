package models

import (
	"time"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleStudent     Role = "STUDENT"
	RoleTeacher     Role = "TEACHER"
	RoleDriver      Role = "DRIVER"
	RoleOfficeAdmin Role = "OFFICE_ADMIN"
)

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleStudent, RoleTeacher, RoleDriver, RoleOfficeAdmin:
		return true
	default:
		return false
	}
}

// Topic is the broadcast channel for a role, e.g. "role_admin".
func (r Role) Topic() string {
	switch r {
	case RoleAdmin:
		return "role_admin"
	case RoleStudent:
		return "role_student"
	case RoleTeacher:
		return "role_teacher"
	case RoleDriver:
		return "role_driver"
	case RoleOfficeAdmin:
		return "role_office_admin"
	default:
		return ""
	}
}

// User represents a user in the system. Drivers are users with role DRIVER
// and a license number.
type User struct {
	ID            string     `bson:"_id,omitempty" json:"id"`
	Username      string     `bson:"username" json:"username"`
	PasswordHash  string     `bson:"password_hash" json:"-"`
	Role          Role       `bson:"role" json:"role"`
	FirstName     string     `bson:"first_name" json:"first_name"`
	LastName      string     `bson:"last_name" json:"last_name"`
	LicenseNumber string     `bson:"license_number,omitempty" json:"license_number,omitempty"`
	IsActive      bool       `bson:"is_active" json:"is_active"`
	LastLogin     *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
}

// IsDriver reports whether the user can be assigned to a vehicle.
func (u *User) IsDriver() bool {
	return u.Role == RoleDriver
}

// Claims is the authenticated caller identity extracted from a verified
// token. Token issuance belongs to the external identity service; this core
// only consumes the identity and role.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
