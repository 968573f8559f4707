package staff

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Permission is one row of the global catalog: a (resource, access type)
// tuple. The catalog is the full cross-product and is never tenant-scoped.
type Permission struct {
	ID          uuid.UUID  `db:"id"`
	Resource    Resource   `db:"resource"`
	AccessType  AccessType `db:"access_type"`
	Description string     `db:"description"`
	CreatedAt   time.Time  `db:"created_at"`
}

// AdminProfile represents one administrator's membership at one school.
// is_principal is derived exclusively by NewRoleInfo; a partial unique index
// over (school_id) WHERE is_principal guarantees at most one per school.
type AdminProfile struct {
	ID          uuid.UUID      `db:"id"`
	UserID      uuid.UUID      `db:"user_id"`
	SchoolID    uuid.UUID      `db:"school_id"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	Email       string         `db:"email"`
	Phone       sql.NullString `db:"phone"`
	Role        string         `db:"role"`
	IsPrincipal bool           `db:"is_principal"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// FullName returns the display name
func (p *AdminProfile) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// TeacherProfile is the parallel per-school membership record for teaching
// staff. An identity may hold both a TeacherProfile and an AdminProfile at
// the same school.
type TeacherProfile struct {
	ID        uuid.UUID      `db:"id"`
	UserID    uuid.UUID      `db:"user_id"`
	SchoolID  uuid.UUID      `db:"school_id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Email     string         `db:"email"`
	Phone     sql.NullString `db:"phone"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// StaffPermissionAssignment is the join row granting one catalog permission
// to one admin profile. Assignment is set-like; duplicates are never created.
type StaffPermissionAssignment struct {
	AdminProfileID uuid.UUID `db:"admin_profile_id"`
	PermissionID   uuid.UUID `db:"permission_id"`
	CreatedAt      time.Time `db:"created_at"`
}
