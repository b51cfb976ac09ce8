// internal/app/features/teams/routes.go
package teams

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func pathUserID(r *http.Request) string {
	return chi.URLParam(r, "userID")
}

// Routes returns the team router. The caller mounts it behind
// RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Rename)
		r.Delete("/", h.Delete)

		r.Get("/members", h.ListMembers)
		r.Post("/members", h.AddMember)
		r.Patch("/members/{userID}", h.SetMemberRole)
		r.Delete("/members/{userID}", h.RemoveMember)
	})

	return r
}
