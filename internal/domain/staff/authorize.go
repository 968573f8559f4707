package staff

import (
	"context"

	"github.com/google/uuid"

	"github.com/schoolhub/schoolhub-api/internal/domain/user"
)

// RequiredPermission is the static declaration a gated endpoint carries.
// A nil declaration means the endpoint requires no permission.
type RequiredPermission struct {
	Resource   Resource
	AccessType AccessType
}

// Actor is the authenticated identity evaluated against a declaration.
// Claims are supplied by the identity provider and trusted verbatim.
type Actor struct {
	UserID         uuid.UUID
	Role           user.Role
	SchoolID       *uuid.UUID // current-school context from the session
	SchoolOverride *uuid.UUID // explicit override on the request
}

// DenyReason is the internal reason for a denial. It is logged and asserted
// in tests; HTTP responses collapse every denial to a generic message so the
// catalog structure is not revealed to unauthorized callers.
type DenyReason string

const (
	DenyMissingSchoolContext   DenyReason = "missing_school_context"
	DenyProfileNotFound        DenyReason = "profile_not_found"
	DenyInsufficientPermission DenyReason = "insufficient_permission"
	DenyRoleNotPermitted       DenyReason = "role_not_permitted"
)

// Decision is the outcome of one authorization check
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Profile *AdminProfile // resolved profile on the school-admin path
}

func allow(profile *AdminProfile) Decision {
	return Decision{Allowed: true, Profile: profile}
}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// ProfileReader resolves an admin profile by identity and school
type ProfileReader interface {
	GetAdminProfileByUser(ctx context.Context, userID, schoolID uuid.UUID) (*AdminProfile, error)
}

// Authorizer evaluates a required permission against an actor. It is
// read-only and performs at most two indexed lookups per check. A storage
// failure is returned as an error, never as a silent Allow.
type Authorizer struct {
	profiles ProfileReader
	grants   PermissionSource
}

// NewAuthorizer creates the decision procedure
func NewAuthorizer(profiles ProfileReader, grants PermissionSource) *Authorizer {
	return &Authorizer{profiles: profiles, grants: grants}
}

// Authorize runs the decision algorithm, short-circuiting in order:
// no declaration, platform override, school-admin permission surface,
// teacher/student pass-through, default deny.
func (a *Authorizer) Authorize(ctx context.Context, required *RequiredPermission, actor Actor) (Decision, error) {
	if required == nil {
		return allow(nil), nil
	}

	switch actor.Role {
	case user.RoleSuperAdmin:
		// Platform-level override, unconditional.
		return allow(nil), nil

	case user.RoleSchoolAdmin:
		schoolID := actor.SchoolOverride
		if schoolID == nil {
			schoolID = actor.SchoolID
		}
		if schoolID == nil {
			return deny(DenyMissingSchoolContext), nil
		}

		profile, err := a.profiles.GetAdminProfileByUser(ctx, actor.UserID, *schoolID)
		if err != nil {
			return Decision{}, err
		}
		if profile == nil {
			return deny(DenyProfileNotFound), nil
		}

		// Principal standing grants full access; explicit assignment rows
		// are never consulted.
		if profile.IsPrincipal {
			return allow(profile), nil
		}

		perms, err := a.grants.ListForAdmin(ctx, profile.ID)
		if err != nil {
			return Decision{}, err
		}
		for _, p := range perms {
			if p.Resource != required.Resource {
				continue
			}
			// admin on a resource subsumes read and write on that resource.
			if p.AccessType == AccessAdmin || p.AccessType == required.AccessType {
				return allow(profile), nil
			}
		}
		return deny(DenyInsufficientPermission), nil

	case user.RoleTeacher, user.RoleStudent:
		// Teachers and students are authorized by their own access logic
		// elsewhere; this procedure only gates the school-admin surface.
		return allow(nil), nil

	default:
		return deny(DenyRoleNotPermitted), nil
	}
}
