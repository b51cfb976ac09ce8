// internal/app/features/activities/routes.go
package activities

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the activity router. The caller mounts it behind
// RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)

		r.Put("/folder", h.SetFolder)
		r.Post("/publish", h.Publish)
		r.Post("/image", h.UploadImage)

		r.Get("/groups", h.ListGroups)
		r.Post("/groups", h.CreateGroup)
	})

	return r
}
