package staff

import (
	"strings"
	"unicode"
)

// Canonical role titles written by the succession operations
const (
	RolePrincipal     = "Principal"
	RoleAdministrator = "Administrator"
)

// principalRoles is the fixed allow-list of role titles that denote full
// access. Membership is tested by exact match after trim/lowercase; a title
// that merely contains one of these ("Vice Principal") must never match.
var principalRoles = map[string]struct{}{
	"principal":     {},
	"head teacher":  {},
	"head_teacher":  {},
	"headteacher":   {},
	"headmaster":    {},
	"headmistress":  {},
	"school head":   {},
	"school_head":   {},
	"school owner":  {},
	"school_owner":  {},
	"director":      {},
}

// teachingKeywords disqualify a title from being an administrative role.
// A keyword matches by equality, prefix, suffix, or as a whole word.
var teachingKeywords = []string{
	"teacher", "teaching", "instructor", "lecturer", "professor", "tutor", "educator",
}

// IsPrincipalRole reports whether the role title denotes the canonical
// full-access standing for a school. This is the single source of truth;
// callers must not re-implement the check with substring matching.
func IsPrincipalRole(role string) bool {
	norm := strings.ToLower(strings.TrimSpace(role))
	if norm == "" {
		return false
	}
	_, ok := principalRoles[norm]
	return ok
}

// ContainsTeachingKeyword reports whether the role title collides with the
// teaching vocabulary. Principal-equivalent titles are exempt: "Head Teacher"
// is a principal role, not a teaching one.
func ContainsTeachingKeyword(role string) bool {
	norm := strings.ToLower(strings.TrimSpace(role))
	if norm == "" {
		return false
	}
	for _, kw := range teachingKeywords {
		if norm == kw || strings.HasPrefix(norm, kw) || strings.HasSuffix(norm, kw) {
			return true
		}
		for _, word := range strings.FieldsFunc(norm, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if word == kw {
				return true
			}
		}
	}
	return false
}

// ValidateAdministrativeRole rejects role titles that belong on the teaching
// surface. Principal-equivalent titles always pass.
func ValidateAdministrativeRole(role string) error {
	if IsPrincipalRole(role) {
		return nil
	}
	if ContainsTeachingKeyword(role) {
		return ErrInvalidAdministrativeRole
	}
	return nil
}

// RoleInfo carries a display title together with its derived principal
// standing. The flag is derived here and nowhere else, so the strict
// classifier and the persisted is_principal column cannot diverge.
type RoleInfo struct {
	Title       string
	IsPrincipal bool
}

// NewRoleInfo normalizes a role title and derives its principal standing
func NewRoleInfo(role string) RoleInfo {
	title := strings.TrimSpace(role)
	return RoleInfo{
		Title:       title,
		IsPrincipal: IsPrincipalRole(title),
	}
}
