// internal/app/features/teams/members.go
package teams

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/policy/teampolicy"
	membershipstore "github.com/dalemusser/trailhub/internal/app/store/memberships"
	"github.com/dalemusser/trailhub/internal/app/system/authz"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/normalize"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type memberResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// ListMembers handles GET /teams/{id}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	t, ok := h.loadTeam(w, r, func(ctx context.Context, t models.Team) (bool, error) {
		return teampolicy.CanViewTeam(ctx, h.DB, ident, t)
	})
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list team members")
	defer cancel()

	ms, err := h.Memberships.ListByTeam(ctx, t.ID, "")
	if err != nil {
		h.Log.Error("list team members failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list members")
		return
	}

	out := make([]memberResponse, 0, len(ms))
	for _, m := range ms {
		entry := memberResponse{UserID: m.UserID.Hex(), Role: string(m.Role)}
		if u, err := h.Users.GetByID(ctx, m.UserID); err == nil {
			entry.Name = u.FullName
			entry.Email = u.Email
		}
		out = append(out, entry)
	}
	httpjson.Respond(w, http.StatusOK, out)
}

type addMemberRequest struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// resolveMemberUser accepts either a user id or an email address.
func (h *Handler) resolveMemberUser(ctx context.Context, req addMemberRequest) (models.User, error) {
	if req.UserID != "" {
		id, err := primitive.ObjectIDFromHex(req.UserID)
		if err != nil {
			return models.User{}, errors.New("invalid user_id")
		}
		return h.Users.GetByID(ctx, id)
	}
	if req.Email != "" {
		return h.Users.GetByEmail(ctx, normalize.Email(req.Email))
	}
	return models.User{}, errors.New("user_id or email is required")
}

// AddMember handles POST /teams/{id}/members. Requires management
// rights on the team; role defaults to member.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)

	var req addMemberRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, ok := h.loadTeam(w, r, func(ctx context.Context, t models.Team) (bool, error) {
		return teampolicy.CanViewTeam(ctx, h.DB, ident, t)
	})
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "add team member")
	defer cancel()

	if ok := h.requireManage(ctx, w, ident, t); !ok {
		return
	}

	u, err := h.resolveMemberUser(ctx, req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, http.StatusNotFound, "user not found")
			return
		}
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	role := models.MembershipRole(normalize.Role(req.Role))
	if role == "" {
		role = models.RoleMember
	}

	if err := h.Memberships.Add(ctx, t.ID, u.ID, role); err != nil {
		switch {
		case errors.Is(err, membershipstore.ErrDuplicateMembership):
			httpjson.Error(w, http.StatusConflict, err.Error())
		case !role.Valid():
			httpjson.Error(w, http.StatusBadRequest, "role must be admin or member")
		default:
			h.Log.Error("add team member failed", zap.Error(err))
			httpjson.Error(w, http.StatusInternalServerError, "could not add member")
		}
		return
	}
	httpjson.Respond(w, http.StatusCreated, memberResponse{
		UserID: u.ID.Hex(),
		Name:   u.FullName,
		Email:  u.Email,
		Role:   string(role),
	})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// SetMemberRole handles PATCH /teams/{id}/members/{userID}.
func (h *Handler) SetMemberRole(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)

	var req setRoleRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role := models.MembershipRole(normalize.Role(req.Role))
	if !role.Valid() {
		httpjson.Error(w, http.StatusBadRequest, "role must be admin or member")
		return
	}

	t, ok := h.loadTeam(w, r, func(ctx context.Context, t models.Team) (bool, error) {
		return teampolicy.CanViewTeam(ctx, h.DB, ident, t)
	})
	if !ok {
		return
	}
	userID, err := primitive.ObjectIDFromHex(pathUserID(r))
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "member not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set member role")
	defer cancel()

	if ok := h.requireManage(ctx, w, ident, t); !ok {
		return
	}

	if err := h.Memberships.SetRole(ctx, t.ID, userID, role); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, http.StatusNotFound, "member not found")
			return
		}
		h.Log.Error("set member role failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not update member")
		return
	}
	httpjson.Respond(w, http.StatusOK, memberResponse{UserID: userID.Hex(), Role: string(role)})
}

// RemoveMember handles DELETE /teams/{id}/members/{userID}. Members
// may remove themselves; removing others requires management rights.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)

	userID, err := primitive.ObjectIDFromHex(pathUserID(r))
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "member not found")
		return
	}

	t, ok := h.loadTeam(w, r, func(ctx context.Context, t models.Team) (bool, error) {
		return teampolicy.CanViewTeam(ctx, h.DB, ident, t)
	})
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove team member")
	defer cancel()

	// Members may always leave; removing anyone else takes management rights.
	if userID != ident.UserID {
		if ok := h.requireManage(ctx, w, ident, t); !ok {
			return
		}
	}

	if err := h.Memberships.Remove(ctx, t.ID, userID); err != nil {
		h.Log.Error("remove team member failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not remove member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
