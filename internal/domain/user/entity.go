package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents the platform-level account role (matches users.role)
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleSchoolAdmin Role = "school_admin"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
)

// Status represents account status (matches users.status)
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// User represents an identity account. Per-school membership lives in the
// admin/teacher profile tables; a single account may hold profiles at
// several schools.
type User struct {
	ID           uuid.UUID      `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Phone        sql.NullString `db:"phone"`
	Role         Role           `db:"role"`
	Status       Status         `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// IsActive returns true if the account is in good standing
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// FullName returns the display name
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
