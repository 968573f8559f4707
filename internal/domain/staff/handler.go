package staff

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/schoolhub/schoolhub-api/internal/domain/user"
	"github.com/schoolhub/schoolhub-api/internal/pkg/errorhandler"
	"github.com/schoolhub/schoolhub-api/internal/pkg/response"
	"github.com/schoolhub/schoolhub-api/internal/pkg/validator"
)

// Handler exposes staff management over HTTP
type Handler struct {
	service *Service
	guard   *Guard
}

// NewHandler creates staff handler
func NewHandler(service *Service, guard *Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

// schoolScope returns the school a gated request was resolved against
func schoolScope(r *http.Request) (uuid.UUID, bool) {
	return SchoolIDFromContext(r.Context())
}

// ListCatalog handles GET /permissions
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	var filter PermissionFilter
	if raw := r.URL.Query().Get("resource"); raw != "" {
		res, ok := ParseResource(raw)
		if !ok {
			response.BadRequest(w, "Unknown permission resource")
			return
		}
		filter.Resource = &res
	}
	if raw := r.URL.Query().Get("access_type"); raw != "" {
		at, ok := ParseAccessType(raw)
		if !ok {
			response.BadRequest(w, "Invalid access type")
			return
		}
		filter.AccessType = &at
	}

	perms, err := h.service.ListCatalog(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, ToPermissionResponses(perms))
}

// MyAccess handles GET /me/permissions. It stays reachable without any
// permission so a freshly created admin can bootstrap their UI.
func (h *Handler) MyAccess(w http.ResponseWriter, r *http.Request) {
	actor, err := h.guard.ActorFromRequest(r)
	if err != nil {
		response.BadRequest(w, "Unknown school")
		return
	}
	schoolID, ok := SchoolScope(actor)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}

	profile, perms, sch, err := h.service.MyAccess(r.Context(), actor.UserID, schoolID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	response.OK(w, MyAccessResponse{
		Profile:     ToAdminResponse(profile),
		Permissions: ToPermissionResponses(perms),
		School:      ToSchoolSummary(sch),
	})
}

// MySchool handles GET /me/school, resolving the caller's school context
func (h *Handler) MySchool(w http.ResponseWriter, r *http.Request) {
	actor, err := h.guard.ActorFromRequest(r)
	if err != nil {
		response.BadRequest(w, "Unknown school")
		return
	}
	schoolID, ok := SchoolScope(actor)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}

	sch, err := h.service.GetSchool(r.Context(), schoolID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, ToSchoolSummary(sch))
}

// ListAdmins handles GET /admins
func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}

	profiles, err := h.service.ListAdmins(r.Context(), schoolID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, ToAdminResponses(profiles))
}

// GetAdmin handles GET /admins/{id}
func (h *Handler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}
	adminID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	profile, err := h.service.GetAdmin(r.Context(), schoolID, adminID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, ToAdminResponse(profile))
}

// ListAdminPermissions handles GET /admins/{id}/permissions
func (h *Handler) ListAdminPermissions(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}
	adminID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	profile, err := h.service.GetAdmin(r.Context(), schoolID, adminID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	perms, err := h.service.ListForAdmin(r.Context(), profile.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, ToPermissionResponses(perms))
}

// CreateAdmin handles POST /admins
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}

	var req CreateAdminRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	profile, err := h.service.CreateAdmin(r.Context(), schoolID, &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.Created(w, ToAdminResponse(profile))
}

// UpdateAdmin handles PUT /admins/{id}
func (h *Handler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}
	adminID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	var req UpdateAdminRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	profile, err := h.service.UpdateAdmin(r.Context(), schoolID, adminID, &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, ToAdminResponse(profile))
}

// DeleteAdmin handles DELETE /admins/{id}
func (h *Handler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}
	adminID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	if err := h.service.DeleteAdmin(r.Context(), schoolID, adminID); err != nil {
		h.handleError(w, r, err)
		return
	}
	response.NoContent(w)
}

// Promote handles POST /admins/{id}/promote
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}
	adminID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	promoted, err := h.service.Promote(r.Context(), schoolID, adminID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, ToAdminResponse(promoted))
}

// ConvertTeacher handles POST /teachers/convert
func (h *Handler) ConvertTeacher(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}

	var req ConvertTeacherRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	profile, err := h.service.ConvertTeacherToAdmin(r.Context(), schoolID, &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.Created(w, ToAdminResponse(profile))
}

// AssignPermissions handles POST /admins/{id}/permissions
func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := schoolScope(r)
	if !ok {
		response.BadRequest(w, "School context is required")
		return
	}
	adminID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid admin ID")
		return
	}

	var req AssignPermissionsRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	profile, err := h.service.GetAdmin(r.Context(), schoolID, adminID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.service.AssignCustom(r.Context(), profile.ID, req.Permissions); err != nil {
		h.handleError(w, r, err)
		return
	}

	perms, err := h.service.ListForAdmin(r.Context(), profile.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, ToPermissionResponses(perms))
}

// handleError maps domain errors to HTTP responses. Authorization denials
// surface as a generic 403 without naming the failed check.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, ErrMissingSchoolContext):
		response.BadRequest(w, "School context is required")
	case errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrInsufficientPermission),
		errors.Is(err, ErrRoleNotPermitted):
		response.Forbidden(w, "Insufficient permissions")
	case errors.Is(err, ErrInvalidAdministrativeRole):
		response.UnprocessableEntity(w, "Role title describes a teaching position")
	case errors.Is(err, ErrPrincipalExists):
		response.Conflict(w, "School already has a principal")
	case errors.Is(err, ErrAlreadyPrincipal):
		response.Conflict(w, "Administrator is already the principal")
	case errors.Is(err, ErrAlreadyAdministrator):
		response.Conflict(w, "User is already an administrator at this school")
	case errors.Is(err, ErrPrincipalActive):
		response.Conflict(w, "An active principal cannot be removed")
	case errors.Is(err, ErrNoFallbackAdmin):
		response.Conflict(w, "School has no other administrator")
	case errors.Is(err, user.ErrEmailTaken):
		response.Conflict(w, "Email is already registered")
	case errors.Is(err, ErrAdminNotFound):
		response.NotFound(w, "Administrator not found")
	case errors.Is(err, ErrTeacherNotFound):
		response.NotFound(w, "Teacher not found")
	case errors.Is(err, ErrSchoolNotFound):
		response.NotFound(w, "School not found")
	default:
		errorhandler.LogDatabaseError(ctx, "staff", err)
		response.InternalError(w)
	}
}
