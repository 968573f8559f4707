package staff

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/schoolhub/schoolhub-api/internal/domain/user"
)

const sqlStateUniqueViolation = "23505"

// Constraint names from migrations/0001_init.sql
const (
	constraintOnePrincipal  = "admin_profiles_one_principal"
	constraintOneMembership = "admin_profiles_user_id_school_id_key"
)

// PermissionFilter narrows catalog lookups
type PermissionFilter struct {
	Resource   *Resource
	AccessType *AccessType
}

// Repository defines staff data access. Succession operations are
// transactional: each performs its reads-then-writes inside one transaction
// with the unique constraints as the race backstop.
type Repository interface {
	// Permission catalog
	EnsureCatalog(ctx context.Context) error
	FindPermission(ctx context.Context, resource Resource, accessType AccessType) (*Permission, error)
	ListPermissions(ctx context.Context, filter PermissionFilter) ([]*Permission, error)

	// Permission assignments
	AssignPermissions(ctx context.Context, adminProfileID uuid.UUID, permissionIDs []uuid.UUID) error
	ListForAdmin(ctx context.Context, adminProfileID uuid.UUID) ([]*Permission, error)

	// Admin profiles
	CreateAdminProfile(ctx context.Context, identity *user.User, profile *AdminProfile, permissionIDs []uuid.UUID) error
	GetAdminProfile(ctx context.Context, id uuid.UUID) (*AdminProfile, error)
	GetAdminProfileByUser(ctx context.Context, userID, schoolID uuid.UUID) (*AdminProfile, error)
	ListAdminProfiles(ctx context.Context, schoolID uuid.UUID) ([]*AdminProfile, error)
	FindPrincipal(ctx context.Context, schoolID uuid.UUID) (*AdminProfile, error)
	UpdateAdminProfile(ctx context.Context, profile *AdminProfile) error
	PromotePrincipal(ctx context.Context, schoolID, targetID uuid.UUID) (demoted, promoted *AdminProfile, err error)
	DeleteAdminProfile(ctx context.Context, profile *AdminProfile) (identityDeleted bool, err error)

	// Teacher profiles
	GetTeacherProfile(ctx context.Context, id uuid.UUID) (*TeacherProfile, error)
	ConvertTeacher(ctx context.Context, teacher *TeacherProfile, profile *AdminProfile, keepAsTeacher bool, permissionIDs []uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates staff repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

// --- Permission catalog ---

// EnsureCatalog upserts the full Resource x AccessType cross-product.
// Every row is written with ON CONFLICT DO NOTHING, so concurrent first
// callers and retries after a partial failure are both safe.
func (r *repository) EnsureCatalog(ctx context.Context) error {
	for _, p := range catalogRows() {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO permissions (id, resource, access_type, description)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (resource, access_type) DO NOTHING
		`, p.ID, p.Resource, p.AccessType, p.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) FindPermission(ctx context.Context, resource Resource, accessType AccessType) (*Permission, error) {
	query := `SELECT * FROM permissions WHERE resource = $1 AND access_type = $2`
	var p Permission
	err := r.db.GetContext(ctx, &p, query, resource, accessType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListPermissions(ctx context.Context, filter PermissionFilter) ([]*Permission, error) {
	query := `SELECT * FROM permissions WHERE 1=1`
	args := []interface{}{}

	if filter.Resource != nil {
		args = append(args, *filter.Resource)
		query += ` AND resource = $1`
	}
	if filter.AccessType != nil {
		args = append(args, *filter.AccessType)
		if len(args) == 1 {
			query += ` AND access_type = $1`
		} else {
			query += ` AND access_type = $2`
		}
	}
	query += ` ORDER BY resource, access_type`

	var perms []*Permission
	err := r.db.SelectContext(ctx, &perms, query, args...)
	return perms, err
}

// --- Permission assignments ---

func (r *repository) AssignPermissions(ctx context.Context, adminProfileID uuid.UUID, permissionIDs []uuid.UUID) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	tx, err := r.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := grantInTx(ctx, tx, adminProfileID, permissionIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// grantInTx inserts assignment rows inside the caller's transaction, so
// profile creation and its initial grants commit or roll back together.
func grantInTx(ctx context.Context, tx *sqlx.Tx, adminProfileID uuid.UUID, permissionIDs []uuid.UUID) error {
	for _, permID := range permissionIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO staff_permissions (admin_profile_id, permission_id)
			VALUES ($1, $2)
			ON CONFLICT (admin_profile_id, permission_id) DO NOTHING
		`, adminProfileID, permID); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) ListForAdmin(ctx context.Context, adminProfileID uuid.UUID) ([]*Permission, error) {
	query := `
		SELECT p.* FROM permissions p
		JOIN staff_permissions sp ON sp.permission_id = p.id
		WHERE sp.admin_profile_id = $1
		ORDER BY p.resource, p.access_type
	`
	var perms []*Permission
	err := r.db.SelectContext(ctx, &perms, query, adminProfileID)
	return perms, err
}

// --- Admin profiles ---

// CreateAdminProfile inserts the profile, the identity when it is new, and
// the initial permission grants inside one transaction. The partial unique
// index rejects a second principal; the membership constraint rejects a
// duplicate profile.
func (r *repository) CreateAdminProfile(ctx context.Context, identity *user.User, profile *AdminProfile, permissionIDs []uuid.UUID) error {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if identity != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, identity.ID, identity.Email, identity.PasswordHash, identity.FirstName, identity.LastName,
			identity.Phone, identity.Role, identity.Status, identity.CreatedAt, identity.UpdatedAt,
		); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == sqlStateUniqueViolation {
				return user.ErrEmailTaken
			}
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO admin_profiles (id, user_id, school_id, first_name, last_name, email, phone, role, is_principal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, profile.ID, profile.UserID, profile.SchoolID, profile.FirstName, profile.LastName,
		profile.Email, profile.Phone, profile.Role, profile.IsPrincipal, profile.CreatedAt, profile.UpdatedAt,
	); err != nil {
		return mapProfileConflict(err)
	}

	if err := grantInTx(ctx, tx, profile.ID, permissionIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) GetAdminProfile(ctx context.Context, id uuid.UUID) (*AdminProfile, error) {
	query := `SELECT * FROM admin_profiles WHERE id = $1`
	var p AdminProfile
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetAdminProfileByUser(ctx context.Context, userID, schoolID uuid.UUID) (*AdminProfile, error) {
	query := `SELECT * FROM admin_profiles WHERE user_id = $1 AND school_id = $2`
	var p AdminProfile
	err := r.db.GetContext(ctx, &p, query, userID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListAdminProfiles(ctx context.Context, schoolID uuid.UUID) ([]*AdminProfile, error) {
	query := `SELECT * FROM admin_profiles WHERE school_id = $1 ORDER BY created_at`
	var profiles []*AdminProfile
	err := r.db.SelectContext(ctx, &profiles, query, schoolID)
	return profiles, err
}

func (r *repository) FindPrincipal(ctx context.Context, schoolID uuid.UUID) (*AdminProfile, error) {
	query := `SELECT * FROM admin_profiles WHERE school_id = $1 AND is_principal`
	var p AdminProfile
	err := r.db.GetContext(ctx, &p, query, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) UpdateAdminProfile(ctx context.Context, profile *AdminProfile) error {
	query := `
		UPDATE admin_profiles SET
			first_name = $2, last_name = $3, email = $4, phone = $5,
			role = $6, is_principal = $7, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.ID, profile.FirstName, profile.LastName, profile.Email, profile.Phone,
		profile.Role, profile.IsPrincipal,
	)
	if err != nil {
		return mapProfileConflict(err)
	}
	return nil
}

// PromotePrincipal atomically demotes the current principal (if any) to a
// neutral Administrator title and promotes the target. Both profiles are
// locked for the duration of the transaction, so a partial promotion is
// never observable.
func (r *repository) PromotePrincipal(ctx context.Context, schoolID, targetID uuid.UUID) (*AdminProfile, *AdminProfile, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var target AdminProfile
	err = tx.GetContext(ctx, &target, `
		SELECT * FROM admin_profiles WHERE id = $1 AND school_id = $2 FOR UPDATE
	`, targetID, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrAdminNotFound
		}
		return nil, nil, err
	}
	if target.IsPrincipal {
		return nil, nil, ErrAlreadyPrincipal
	}

	var demoted *AdminProfile
	var current AdminProfile
	err = tx.GetContext(ctx, &current, `
		SELECT * FROM admin_profiles WHERE school_id = $1 AND is_principal FOR UPDATE
	`, schoolID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `
			UPDATE admin_profiles SET role = $2, is_principal = false, updated_at = NOW() WHERE id = $1
		`, current.ID, RoleAdministrator); err != nil {
			return nil, nil, err
		}
		current.Role = RoleAdministrator
		current.IsPrincipal = false
		demoted = &current
	case errors.Is(err, sql.ErrNoRows):
		// School had no principal; the promotion fills the seat.
	default:
		return nil, nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE admin_profiles SET role = $2, is_principal = true, updated_at = NOW() WHERE id = $1
	`, target.ID, RolePrincipal); err != nil {
		return nil, nil, mapProfileConflict(err)
	}
	target.Role = RolePrincipal
	target.IsPrincipal = true

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return demoted, &target, nil
}

// DeleteAdminProfile removes the profile and, when the identity holds no
// sibling profile anywhere, the identity itself. For a principal the
// fallback-administrator count is re-checked inside the transaction so a
// concurrent delete cannot strand the school.
func (r *repository) DeleteAdminProfile(ctx context.Context, profile *AdminProfile) (bool, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if profile.IsPrincipal {
		var fallback int
		err := tx.GetContext(ctx, &fallback, `
			SELECT COUNT(*) FROM admin_profiles
			WHERE school_id = $1 AND id <> $2 AND NOT is_principal
		`, profile.SchoolID, profile.ID)
		if err != nil {
			return false, err
		}
		if fallback == 0 {
			return false, ErrNoFallbackAdmin
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM admin_profiles WHERE id = $1`, profile.ID); err != nil {
		return false, err
	}

	var siblings int
	err = tx.GetContext(ctx, &siblings, `
		SELECT (SELECT COUNT(*) FROM admin_profiles WHERE user_id = $1)
		     + (SELECT COUNT(*) FROM teacher_profiles WHERE user_id = $1)
	`, profile.UserID)
	if err != nil {
		return false, err
	}

	identityDeleted := false
	if siblings == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, profile.UserID); err != nil {
			return false, err
		}
		identityDeleted = true
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return identityDeleted, nil
}

// --- Teacher profiles ---

func (r *repository) GetTeacherProfile(ctx context.Context, id uuid.UUID) (*TeacherProfile, error) {
	query := `SELECT * FROM teacher_profiles WHERE id = $1`
	var t TeacherProfile
	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ConvertTeacher creates the admin profile with its initial grants from the
// teacher's identity, flips the account role flag, and removes the teacher
// profile unless the person keeps the dual role. One transaction.
func (r *repository) ConvertTeacher(ctx context.Context, teacher *TeacherProfile, profile *AdminProfile, keepAsTeacher bool, permissionIDs []uuid.UUID) error {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO admin_profiles (id, user_id, school_id, first_name, last_name, email, phone, role, is_principal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, profile.ID, profile.UserID, profile.SchoolID, profile.FirstName, profile.LastName,
		profile.Email, profile.Phone, profile.Role, profile.IsPrincipal, profile.CreatedAt, profile.UpdatedAt,
	); err != nil {
		return mapProfileConflict(err)
	}

	if err := grantInTx(ctx, tx, profile.ID, permissionIDs); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1
	`, teacher.UserID, user.RoleSchoolAdmin); err != nil {
		return err
	}

	if !keepAsTeacher {
		if _, err := tx.ExecContext(ctx, `DELETE FROM teacher_profiles WHERE id = $1`, teacher.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// mapProfileConflict translates unique violations on admin_profiles into
// domain errors.
func mapProfileConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == sqlStateUniqueViolation {
		switch pqErr.Constraint {
		case constraintOnePrincipal:
			return ErrPrincipalExists
		case constraintOneMembership:
			return ErrAlreadyAdministrator
		}
	}
	return err
}
