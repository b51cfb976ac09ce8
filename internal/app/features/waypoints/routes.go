// internal/app/features/waypoints/routes.go
package waypoints

import (
	"github.com/go-chi/chi/v5"
)

// GroupRoutes returns the router mounted at /groups. The caller mounts
// it behind RequireSignedIn.
func GroupRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/{groupID}", func(r chi.Router) {
		r.Patch("/", h.RenameGroup)
		r.Delete("/", h.DeleteGroup)
		r.Get("/waypoints", h.ListWaypoints)
		r.Post("/waypoints", h.CreateWaypoint)
	})

	return r
}

// Routes returns the router mounted at /waypoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Post("/move", h.Move)

		r.Get("/media", h.ListMedia)
		r.Post("/media", h.UploadMedia)
		r.Patch("/media/{mediaID}", h.DescribeMedia)
		r.Delete("/media/{mediaID}", h.DeleteMedia)
	})

	return r
}
