// internal/app/features/teams/handler.go
package teams

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/policy/teampolicy"
	folderpermstore "github.com/dalemusser/trailhub/internal/app/store/folderperms"
	membershipstore "github.com/dalemusser/trailhub/internal/app/store/memberships"
	teamstore "github.com/dalemusser/trailhub/internal/app/store/teams"
	userstore "github.com/dalemusser/trailhub/internal/app/store/users"
	"github.com/dalemusser/trailhub/internal/app/system/authz"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB          *mongo.Database
	Teams       *teamstore.Store
	Memberships *membershipstore.Store
	Perms       *folderpermstore.Store
	Users       *userstore.Store
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Teams:       teamstore.New(db),
		Memberships: membershipstore.New(db),
		Perms:       folderpermstore.New(db),
		Users:       userstore.New(db),
		Log:         logger,
	}
}

type teamResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

func toTeamResponse(t models.Team) teamResponse {
	return teamResponse{ID: t.ID.Hex(), Name: t.Name, OwnerID: t.OwnerID.Hex()}
}

func pathTeamID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// loadTeam fetches the team and checks the given gate, writing the
// response itself when the caller may not proceed.
func (h *Handler) loadTeam(w http.ResponseWriter, r *http.Request,
	gate func(ctx context.Context, t models.Team) (bool, error)) (models.Team, bool) {

	id, ok := pathTeamID(r)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "team not found")
		return models.Team{}, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load team")
	defer cancel()

	t, err := h.Teams.GetByID(ctx, id)
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "team not found")
		return models.Team{}, false
	}
	allowed, err := gate(ctx, t)
	if err != nil {
		h.Log.Error("team gate failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not load team")
		return models.Team{}, false
	}
	if !allowed {
		httpjson.Error(w, http.StatusNotFound, "team not found")
		return models.Team{}, false
	}
	return t, true
}

// requireManage checks management rights on a team the caller can
// already see, writing a 403 when they are lacking.
func (h *Handler) requireManage(ctx context.Context, w http.ResponseWriter, ident authz.Identity, t models.Team) bool {
	allowed, err := teampolicy.CanManageTeam(ctx, h.DB, ident, t)
	if err != nil {
		h.Log.Error("team manage check failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not load team")
		return false
	}
	if !allowed {
		httpjson.Error(w, http.StatusForbidden, "team management rights are required")
		return false
	}
	return true
}

// List handles GET /teams: the teams the caller owns or belongs to.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list teams")
	defer cancel()

	memberOf, err := h.Memberships.TeamIDsForUser(ctx, ident.UserID)
	if err != nil {
		h.Log.Error("list teams: membership lookup failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list teams")
		return
	}
	teams, err := h.Teams.ListByIDs(ctx, memberOf)
	if err != nil {
		h.Log.Error("list teams failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list teams")
		return
	}

	seen := make(map[primitive.ObjectID]bool, len(teams))
	out := make([]teamResponse, 0, len(teams))
	for _, t := range teams {
		seen[t.ID] = true
		out = append(out, toTeamResponse(t))
	}

	// Owned teams the caller is not a member of.
	cur, err := h.DB.Collection("teams").Find(ctx, bson.M{"owner_id": ident.UserID})
	if err != nil {
		h.Log.Error("list teams: owner query failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list teams")
		return
	}
	defer cur.Close(ctx)
	var owned []models.Team
	if err := cur.All(ctx, &owned); err != nil {
		h.Log.Error("list teams: decode failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list teams")
		return
	}
	for _, t := range owned {
		if !seen[t.ID] {
			out = append(out, toTeamResponse(t))
		}
	}
	httpjson.Respond(w, http.StatusOK, out)
}

type createTeamRequest struct {
	Name string `json:"name"`
}

// Create handles POST /teams. The caller becomes the owner and is
// enrolled as an admin member.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)

	var req createTeamRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpjson.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create team")
	defer cancel()

	t, err := h.Teams.Create(ctx, models.Team{Name: req.Name, OwnerID: ident.UserID})
	if err != nil {
		if errors.Is(err, teamstore.ErrDuplicateTeamName) {
			httpjson.Error(w, http.StatusConflict, err.Error())
			return
		}
		h.Log.Error("create team failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not create team")
		return
	}
	if err := h.Memberships.Add(ctx, t.ID, ident.UserID, models.RoleAdmin); err != nil {
		h.Log.Error("create team: enrolling owner failed",
			zap.String("team_id", t.ID.Hex()), zap.Error(err))
	}
	httpjson.Respond(w, http.StatusCreated, toTeamResponse(t))
}

// Get handles GET /teams/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	t, ok := h.loadTeam(w, r, func(ctx context.Context, t models.Team) (bool, error) {
		return teampolicy.CanViewTeam(ctx, h.DB, ident, t)
	})
	if !ok {
		return
	}
	httpjson.Respond(w, http.StatusOK, toTeamResponse(t))
}

type renameTeamRequest struct {
	Name string `json:"name"`
}

// Rename handles PATCH /teams/{id}.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)

	var req renameTeamRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpjson.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	t, ok := h.loadTeam(w, r, func(ctx context.Context, t models.Team) (bool, error) {
		return teampolicy.CanViewTeam(ctx, h.DB, ident, t)
	})
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "rename team")
	defer cancel()

	if ok := h.requireManage(ctx, w, ident, t); !ok {
		return
	}

	if err := h.Teams.Rename(ctx, t.ID, req.Name); err != nil {
		if errors.Is(err, teamstore.ErrDuplicateTeamName) {
			httpjson.Error(w, http.StatusConflict, err.Error())
			return
		}
		h.Log.Error("rename team failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not rename team")
		return
	}
	t.Name = req.Name
	httpjson.Respond(w, http.StatusOK, toTeamResponse(t))
}

// Delete handles DELETE /teams/{id}: the team, its memberships, and
// every folder grant naming it. Only the owner or staff may delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	t, ok := h.loadTeam(w, r, func(ctx context.Context, t models.Team) (bool, error) {
		return teampolicy.CanViewTeam(ctx, h.DB, ident, t)
	})
	if !ok {
		return
	}
	if !ident.IsStaff && t.OwnerID != ident.UserID {
		httpjson.Error(w, http.StatusForbidden, "only the team owner can delete it")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete team")
	defer cancel()

	if _, err := h.Memberships.DeleteByTeam(ctx, t.ID); err != nil {
		h.Log.Error("delete team: removing memberships failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete team")
		return
	}
	if _, err := h.Perms.DeleteByPrincipal(ctx, models.Principal{Type: models.PrincipalTeam, ID: t.ID}); err != nil {
		h.Log.Error("delete team: removing grants failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete team")
		return
	}
	if _, err := h.Teams.Delete(ctx, t.ID); err != nil {
		h.Log.Error("delete team failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete team")
		return
	}
	h.Log.Info("team deleted", zap.String("team_id", t.ID.Hex()))
	w.WriteHeader(http.StatusNoContent)
}
