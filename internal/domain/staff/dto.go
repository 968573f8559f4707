package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/schoolhub/schoolhub-api/internal/domain/school"
)

// PermissionRequest is one requested (resource, access type) grant
type PermissionRequest struct {
	Resource   string `json:"resource" validate:"required,resource"`
	AccessType string `json:"access_type" validate:"required,access_type"`
}

// CreateAdminRequest creates an administrator membership
type CreateAdminRequest struct {
	FirstName   string              `json:"first_name" validate:"required,min=1,max=100"`
	LastName    string              `json:"last_name" validate:"required,min=1,max=100"`
	Email       string              `json:"email" validate:"required,email"`
	Phone       string              `json:"phone" validate:"omitempty,max=20"`
	Role        string              `json:"role" validate:"required,min=2,max=100"`
	Permissions []PermissionRequest `json:"permissions" validate:"omitempty,dive"`
}

// UpdateAdminRequest patches an administrator profile
type UpdateAdminRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Role      *string `json:"role" validate:"omitempty,min=2,max=100"`
}

// ConvertTeacherRequest promotes an existing teacher into administration
type ConvertTeacherRequest struct {
	TeacherID     uuid.UUID           `json:"teacher_id" validate:"required"`
	Role          string              `json:"role" validate:"required,min=2,max=100"`
	KeepAsTeacher bool                `json:"keep_as_teacher"`
	Permissions   []PermissionRequest `json:"permissions" validate:"omitempty,dive"`
}

// AssignPermissionsRequest grants additional catalog permissions
type AssignPermissionsRequest struct {
	Permissions []PermissionRequest `json:"permissions" validate:"required,min=1,dive"`
}

// PermissionResponse is one catalog row
type PermissionResponse struct {
	ID          uuid.UUID `json:"id"`
	Resource    string    `json:"resource"`
	AccessType  string    `json:"access_type"`
	Description string    `json:"description"`
}

// AdminResponse is the public shape of an administrator profile
type AdminResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	SchoolID    uuid.UUID `json:"school_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Role        string    `json:"role"`
	IsPrincipal bool      `json:"is_principal"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SchoolSummary is the school context returned to the client at bootstrap
type SchoolSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
}

// MyAccessResponse is the bootstrap payload: the caller's profile, granted
// permissions, and school. A principal's permission list is empty because
// principal access is role-derived, not row-derived.
type MyAccessResponse struct {
	Profile     AdminResponse        `json:"profile"`
	Permissions []PermissionResponse `json:"permissions"`
	School      SchoolSummary        `json:"school"`
}

// ToPermissionResponse converts a catalog row
func ToPermissionResponse(p *Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID,
		Resource:    string(p.Resource),
		AccessType:  string(p.AccessType),
		Description: p.Description,
	}
}

// ToPermissionResponses converts a permission list, never returning nil
func ToPermissionResponses(perms []*Permission) []PermissionResponse {
	out := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, ToPermissionResponse(p))
	}
	return out
}

// ToAdminResponse converts an administrator profile
func ToAdminResponse(p *AdminProfile) AdminResponse {
	resp := AdminResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		SchoolID:    p.SchoolID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		Role:        p.Role,
		IsPrincipal: p.IsPrincipal,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Phone.Valid {
		resp.Phone = p.Phone.String
	}
	return resp
}

// ToAdminResponses converts a profile list, never returning nil
func ToAdminResponses(profiles []*AdminProfile) []AdminResponse {
	out := make([]AdminResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, ToAdminResponse(p))
	}
	return out
}

// ToSchoolSummary converts a school record
func ToSchoolSummary(s *school.School) SchoolSummary {
	return SchoolSummary{ID: s.ID, Name: s.Name, Subdomain: s.Subdomain}
}
