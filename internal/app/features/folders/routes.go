// internal/app/features/folders/routes.go
package folders

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the folder router. The caller mounts it behind
// RequireSignedIn; every endpoint assumes an authenticated session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/activities", h.ListActivities)
		r.Get("/permissions", h.ListPermissions)
		r.Put("/permissions", h.Grant)
		r.Delete("/permissions", h.Revoke)
	})

	return r
}
