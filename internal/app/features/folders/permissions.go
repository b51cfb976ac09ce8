// internal/app/features/folders/permissions.go
package folders

import (
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/policy/folderpolicy"
	"github.com/dalemusser/trailhub/internal/app/system/authz"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type grantRequest struct {
	PrincipalType string `json:"principal_type"`
	PrincipalID   string `json:"principal_id"`
	Access        string `json:"access,omitempty"`
}

type grantResponse struct {
	PrincipalType string `json:"principal_type"`
	PrincipalID   string `json:"principal_id"`
	Access        string `json:"access"`
}

func parsePrincipal(req grantRequest) (models.Principal, bool) {
	pt := models.PrincipalType(req.PrincipalType)
	valid := false
	for _, t := range models.PrincipalTypes {
		if pt == t {
			valid = true
			break
		}
	}
	if !valid {
		return models.Principal{}, false
	}
	id, err := primitive.ObjectIDFromHex(req.PrincipalID)
	if err != nil {
		return models.Principal{}, false
	}
	return models.Principal{Type: pt, ID: id}, true
}

// manageableFolder loads the folder and checks that the caller holds
// write access, writing the error response itself when the caller may
// not proceed. Write access covers sharing management, so any write
// grantee can extend or revoke grants on the folder.
func (h *Handler) manageableFolder(w http.ResponseWriter, r *http.Request) (models.Folder, bool) {
	ident := authz.FromRequest(r)
	id, ok := pathID(r)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return models.Folder{}, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load folder")
	defer cancel()

	f, err := h.Folders.GetByID(ctx, id)
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return models.Folder{}, false
	}
	access, err := folderpolicy.Resolve(ctx, h.DB, ident, id)
	if err != nil || !access.CanRead {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return models.Folder{}, false
	}
	if !access.CanWrite {
		httpjson.Error(w, http.StatusForbidden, "write access to the folder is required")
		return models.Folder{}, false
	}
	return f, true
}

// ListPermissions handles GET /folders/{id}/permissions. Only direct
// grants on this folder are returned; inherited access shows up on the
// ancestor that granted it.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	f, ok := h.manageableFolder(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list folder permissions")
	defer cancel()

	perms, err := h.Perms.ListByFolder(ctx, f.ID)
	if err != nil {
		h.Log.Error("list folder permissions failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list permissions")
		return
	}

	out := make([]grantResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, grantResponse{
			PrincipalType: string(p.Principal.Type),
			PrincipalID:   p.Principal.ID.Hex(),
			Access:        string(p.Access),
		})
	}
	httpjson.Respond(w, http.StatusOK, out)
}

// Grant handles PUT /folders/{id}/permissions. Granting to a principal
// that already holds a grant replaces its access level.
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f, ok := h.manageableFolder(w, r)
	if !ok {
		return
	}

	principal, ok := parsePrincipal(req)
	if !ok {
		httpjson.Error(w, http.StatusBadRequest, "invalid principal")
		return
	}
	access := models.AccessLevel(req.Access)
	if access == "" {
		access = models.AccessRead
	}
	valid := false
	for _, a := range models.AccessLevels {
		if access == a {
			valid = true
			break
		}
	}
	if !valid {
		httpjson.Error(w, http.StatusBadRequest, "access must be read or write")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "grant folder access")
	defer cancel()

	if err := h.Perms.Grant(ctx, f.ID, principal, access); err != nil {
		h.Log.Error("grant folder access failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not grant access")
		return
	}
	httpjson.Respond(w, http.StatusOK, grantResponse{
		PrincipalType: string(principal.Type),
		PrincipalID:   principal.ID.Hex(),
		Access:        string(access),
	})
}

// Revoke handles DELETE /folders/{id}/permissions. Revoking a grant
// that does not exist is a no-op.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f, ok := h.manageableFolder(w, r)
	if !ok {
		return
	}

	principal, ok := parsePrincipal(req)
	if !ok {
		httpjson.Error(w, http.StatusBadRequest, "invalid principal")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "revoke folder access")
	defer cancel()

	if _, err := h.Perms.Revoke(ctx, f.ID, principal); err != nil {
		h.Log.Error("revoke folder access failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not revoke access")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
