package staff

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/schoolhub/schoolhub-api/internal/domain/school"
	"github.com/schoolhub/schoolhub-api/internal/domain/user"
	"github.com/schoolhub/schoolhub-api/internal/pkg/password"
)

// Notifier delivers role-change notifications. Implementations must be
// non-blocking and best-effort; a failed notification never rolls back the
// committed operation that triggered it.
type Notifier interface {
	RoleChanged(email, name, oldRole, newRole, schoolName string)
	PrincipalPromoted(email, name, schoolName string)
	WelcomeAdmin(email, name, schoolName, role, tempPassword string)
}

// Service orchestrates staff management: profile lifecycle, permission
// grants, and the principal succession operations.
type Service struct {
	repo     Repository
	users    user.Repository
	schools  school.Repository
	grants   PermissionSource
	cache    *PermissionCache
	notifier Notifier
}

// NewService creates staff service
func NewService(repo Repository, users user.Repository, schools school.Repository, grants PermissionSource, cache *PermissionCache, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		schools:  schools,
		grants:   grants,
		cache:    cache,
		notifier: notifier,
	}
}

// --- Reads ---

// GetAdmin returns one admin profile scoped to a school
func (s *Service) GetAdmin(ctx context.Context, schoolID, adminID uuid.UUID) (*AdminProfile, error) {
	profile, err := s.repo.GetAdminProfile(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.SchoolID != schoolID {
		return nil, ErrAdminNotFound
	}
	return profile, nil
}

// ListAdmins returns every admin profile in a school
func (s *Service) ListAdmins(ctx context.Context, schoolID uuid.UUID) ([]*AdminProfile, error) {
	return s.repo.ListAdminProfiles(ctx, schoolID)
}

// ListCatalog returns catalog rows, optionally filtered
func (s *Service) ListCatalog(ctx context.Context, filter PermissionFilter) ([]*Permission, error) {
	return s.repo.ListPermissions(ctx, filter)
}

// ListForAdmin returns the granted permission set for one profile
func (s *Service) ListForAdmin(ctx context.Context, adminProfileID uuid.UUID) ([]*Permission, error) {
	return s.grants.ListForAdmin(ctx, adminProfileID)
}

// GetSchool resolves a school or reports it missing
func (s *Service) GetSchool(ctx context.Context, id uuid.UUID) (*school.School, error) {
	sch, err := s.schools.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sch == nil {
		return nil, ErrSchoolNotFound
	}
	return sch, nil
}

// MyAccess resolves the caller's profile, granted permissions, and school.
// This backs the bootstrap endpoint that must stay reachable before any
// permission exists.
func (s *Service) MyAccess(ctx context.Context, userID, schoolID uuid.UUID) (*AdminProfile, []*Permission, *school.School, error) {
	profile, err := s.repo.GetAdminProfileByUser(ctx, userID, schoolID)
	if err != nil {
		return nil, nil, nil, err
	}
	if profile == nil {
		return nil, nil, nil, ErrProfileNotFound
	}

	perms, err := s.grants.ListForAdmin(ctx, profile.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	sch, err := s.schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, nil, nil, err
	}
	if sch == nil {
		return nil, nil, nil, ErrSchoolNotFound
	}
	return profile, perms, sch, nil
}

// --- Permission grants ---

// defaultReadIDs resolves the full READ catalog set, populating the catalog
// once if it reads empty.
func (s *Service) defaultReadIDs(ctx context.Context) ([]uuid.UUID, error) {
	read := AccessRead
	perms, err := s.repo.ListPermissions(ctx, PermissionFilter{AccessType: &read})
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		if err := s.repo.EnsureCatalog(ctx); err != nil {
			return nil, err
		}
		perms, err = s.repo.ListPermissions(ctx, PermissionFilter{AccessType: &read})
		if err != nil {
			return nil, err
		}
	}

	ids := make([]uuid.UUID, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// resolveGrantIDs matches requested (resource, type) tuples against the
// catalog. Unknown tuples are silently dropped; duplicates are skipped.
func (s *Service) resolveGrantIDs(ctx context.Context, requests []PermissionRequest) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, req := range requests {
		res, ok := ParseResource(req.Resource)
		if !ok {
			continue
		}
		at, ok := ParseAccessType(req.AccessType)
		if !ok {
			continue
		}
		perm, err := s.repo.FindPermission(ctx, res, at)
		if err != nil {
			return nil, err
		}
		if perm == nil {
			continue
		}
		if _, dup := seen[perm.ID]; dup {
			continue
		}
		seen[perm.ID] = struct{}{}
		ids = append(ids, perm.ID)
	}
	return ids, nil
}

// initialGrantIDs picks the grant set written alongside a new non-principal
// profile: the requested tuples, or the default READ set when none were
// named. A principal gets no assignment rows.
func (s *Service) initialGrantIDs(ctx context.Context, info RoleInfo, requests []PermissionRequest) ([]uuid.UUID, error) {
	if info.IsPrincipal {
		return nil, nil
	}
	if len(requests) > 0 {
		return s.resolveGrantIDs(ctx, requests)
	}
	return s.defaultReadIDs(ctx)
}

// AssignCustom grants additional catalog permissions to an existing admin.
// An empty or all-unknown request is a no-op.
func (s *Service) AssignCustom(ctx context.Context, adminProfileID uuid.UUID, requests []PermissionRequest) error {
	ids, err := s.resolveGrantIDs(ctx, requests)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.repo.AssignPermissions(ctx, adminProfileID, ids); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, adminProfileID)
	return nil
}

// --- Succession operations ---

// CreateAdmin creates an administrator membership at a school, creating the
// identity account when the email is new. A principal-equivalent role gets
// no assignment rows; any other role gets either the requested grants or
// the default READ set.
func (s *Service) CreateAdmin(ctx context.Context, schoolID uuid.UUID, req *CreateAdminRequest) (*AdminProfile, error) {
	sch, err := s.schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if sch == nil {
		return nil, ErrSchoolNotFound
	}

	info := NewRoleInfo(req.Role)
	if err := ValidateAdministrativeRole(info.Title); err != nil {
		return nil, err
	}
	if info.IsPrincipal {
		current, err := s.repo.FindPrincipal(ctx, schoolID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			return nil, ErrPrincipalExists
		}
	}

	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var identity *user.User
	var userID uuid.UUID
	tempPassword := ""
	if existing != nil {
		userID = existing.ID
	} else {
		tempPassword, err = password.GenerateTemporary()
		if err != nil {
			return nil, err
		}
		hash, err := password.Hash(tempPassword)
		if err != nil {
			return nil, err
		}
		identity = &user.User{
			ID:           uuid.New(),
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        nullString(req.Phone),
			Role:         user.RoleSchoolAdmin,
			Status:       user.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		userID = identity.ID
	}

	profile := &AdminProfile{
		ID:          uuid.New(),
		UserID:      userID,
		SchoolID:    schoolID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       nullString(req.Phone),
		Role:        info.Title,
		IsPrincipal: info.IsPrincipal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	grantIDs, err := s.initialGrantIDs(ctx, info, req.Permissions)
	if err != nil {
		return nil, err
	}

	// Profile, identity, and initial grants commit together. The partial
	// unique index closes the race between two concurrent "make principal"
	// requests; the pre-check above only provides the friendly error on
	// the fast path.
	if err := s.repo.CreateAdminProfile(ctx, identity, profile, grantIDs); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.WelcomeAdmin(profile.Email, profile.FullName(), sch.Name, info.Title, tempPassword)
	}
	return profile, nil
}

// Promote makes the target the school's principal, demoting the current one
// to a neutral Administrator title in the same transaction. Notifications go
// out after commit and never affect the result.
func (s *Service) Promote(ctx context.Context, schoolID, targetID uuid.UUID) (*AdminProfile, error) {
	sch, err := s.schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if sch == nil {
		return nil, ErrSchoolNotFound
	}

	demoted, promoted, err := s.repo.PromotePrincipal(ctx, schoolID, targetID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.PrincipalPromoted(promoted.Email, promoted.FullName(), sch.Name)
		if demoted != nil {
			s.notifier.RoleChanged(demoted.Email, demoted.FullName(), RolePrincipal, demoted.Role, sch.Name)
		}
	}
	return promoted, nil
}

// UpdateAdmin patches a profile. A role change is re-validated against the
// teaching vocabulary and the principal-uniqueness invariant, and triggers a
// role-change notification after commit.
func (s *Service) UpdateAdmin(ctx context.Context, schoolID, adminID uuid.UUID, req *UpdateAdminRequest) (*AdminProfile, error) {
	profile, err := s.GetAdmin(ctx, schoolID, adminID)
	if err != nil {
		return nil, err
	}

	oldRole := profile.Role
	roleChanged := false

	if req.Role != nil {
		info := NewRoleInfo(*req.Role)
		if info.Title != profile.Role {
			if err := ValidateAdministrativeRole(info.Title); err != nil {
				return nil, err
			}
			if info.IsPrincipal && !profile.IsPrincipal {
				current, err := s.repo.FindPrincipal(ctx, schoolID)
				if err != nil {
					return nil, err
				}
				if current != nil && current.ID != profile.ID {
					return nil, ErrPrincipalExists
				}
			}
			profile.Role = info.Title
			profile.IsPrincipal = info.IsPrincipal
			roleChanged = true
		}
	}
	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.Phone != nil {
		profile.Phone = nullString(*req.Phone)
	}

	if err := s.repo.UpdateAdminProfile(ctx, profile); err != nil {
		return nil, err
	}

	if roleChanged && s.notifier != nil {
		sch, err := s.schools.GetByID(ctx, schoolID)
		if err == nil && sch != nil {
			s.notifier.RoleChanged(profile.Email, profile.FullName(), oldRole, profile.Role, sch.Name)
		}
	}
	return profile, nil
}

// DeleteAdmin removes an administrator. A principal cannot be removed while
// the school and their account are both active, nor when no other
// administrator exists to absorb continuity.
func (s *Service) DeleteAdmin(ctx context.Context, schoolID, adminID uuid.UUID) error {
	profile, err := s.GetAdmin(ctx, schoolID, adminID)
	if err != nil {
		return err
	}

	if profile.IsPrincipal {
		sch, err := s.schools.GetByID(ctx, schoolID)
		if err != nil {
			return err
		}
		if sch == nil {
			return ErrSchoolNotFound
		}
		identity, err := s.users.GetByID(ctx, profile.UserID)
		if err != nil {
			return err
		}
		if sch.IsActive && identity != nil && identity.IsActive() {
			return ErrPrincipalActive
		}
	}

	if _, err := s.repo.DeleteAdminProfile(ctx, profile); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, profile.ID)
	return nil
}

// ConvertTeacherToAdmin creates an administrator membership from an existing
// teacher, reusing the identity and contact fields. The teacher profile is
// removed unless the person keeps the dual role.
func (s *Service) ConvertTeacherToAdmin(ctx context.Context, schoolID uuid.UUID, req *ConvertTeacherRequest) (*AdminProfile, error) {
	teacher, err := s.repo.GetTeacherProfile(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	if teacher == nil || teacher.SchoolID != schoolID {
		return nil, ErrTeacherNotFound
	}

	existing, err := s.repo.GetAdminProfileByUser(ctx, teacher.UserID, schoolID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyAdministrator
	}

	info := NewRoleInfo(req.Role)
	if err := ValidateAdministrativeRole(info.Title); err != nil {
		return nil, err
	}
	if info.IsPrincipal {
		current, err := s.repo.FindPrincipal(ctx, schoolID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			return nil, ErrPrincipalExists
		}
	}

	now := time.Now()
	profile := &AdminProfile{
		ID:          uuid.New(),
		UserID:      teacher.UserID,
		SchoolID:    schoolID,
		FirstName:   teacher.FirstName,
		LastName:    teacher.LastName,
		Email:       teacher.Email,
		Phone:       teacher.Phone,
		Role:        info.Title,
		IsPrincipal: info.IsPrincipal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	grantIDs, err := s.initialGrantIDs(ctx, info, req.Permissions)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ConvertTeacher(ctx, teacher, profile, req.KeepAsTeacher, grantIDs); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		sch, err := s.schools.GetByID(ctx, schoolID)
		if err == nil && sch != nil {
			s.notifier.RoleChanged(profile.Email, profile.FullName(), "Teacher", info.Title, sch.Name)
		}
	}
	return profile, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
