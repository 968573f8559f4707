package staff

import "errors"

var (
	// Authorization denials
	ErrMissingSchoolContext   = errors.New("school context is required")
	ErrProfileNotFound        = errors.New("administrator profile not found for this school")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrRoleNotPermitted       = errors.New("role is not permitted on this surface")

	// Role validation
	ErrInvalidAdministrativeRole = errors.New("administrative role cannot be a teaching role")

	// Succession guards
	ErrPrincipalExists      = errors.New("school already has a principal")
	ErrPrincipalActive      = errors.New("cannot remove the principal of an active school")
	ErrNoFallbackAdmin      = errors.New("school would be left without an administrator")
	ErrAlreadyPrincipal     = errors.New("administrator is already the principal")
	ErrAlreadyAdministrator = errors.New("user is already an administrator of this school")

	// Lookups
	ErrAdminNotFound   = errors.New("administrator not found")
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrSchoolNotFound  = errors.New("school not found")
)
