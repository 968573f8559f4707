package staff

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts staff management under /staff. Every route requires
// authentication; all but the catalog and bootstrap endpoints additionally
// require a declared permission on the staff resource.
func RegisterRoutes(r chi.Router, h *Handler, guard *Guard, auth func(http.Handler) http.Handler) {
	r.Route("/staff", func(r chi.Router) {
		r.Use(auth)

		// Catalog and bootstrap stay ungated so a fresh admin can load
		// their own permission set before holding any grant.
		r.Get("/permissions", h.ListCatalog)
		r.Get("/me/permissions", h.MyAccess)
		r.Get("/me/school", h.MySchool)

		r.Route("/admins", func(r chi.Router) {
			r.With(guard.Require(ResourceStaff, AccessRead)).Get("/", h.ListAdmins)
			r.With(guard.Require(ResourceStaff, AccessRead)).Get("/{id}", h.GetAdmin)
			r.With(guard.Require(ResourceStaff, AccessRead)).Get("/{id}/permissions", h.ListAdminPermissions)
			r.With(guard.Require(ResourceStaff, AccessWrite)).Post("/", h.CreateAdmin)
			r.With(guard.Require(ResourceStaff, AccessWrite)).Put("/{id}", h.UpdateAdmin)
			r.With(guard.Require(ResourceStaff, AccessWrite)).Post("/{id}/permissions", h.AssignPermissions)
			r.With(guard.Require(ResourceStaff, AccessAdmin)).Delete("/{id}", h.DeleteAdmin)
			r.With(guard.Require(ResourceStaff, AccessAdmin)).Post("/{id}/promote", h.Promote)
		})

		r.With(guard.Require(ResourceStaff, AccessAdmin)).Post("/teachers/convert", h.ConvertTeacher)
	})
}
