// internal/app/features/activities/groups.go
package activities

import (
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"go.uber.org/zap"
)

// ListGroups handles GET /activities/{id}/groups, in display order.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	a, ok := h.readableActivity(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list waypoint groups")
	defer cancel()

	groups, err := h.Groups.ListByActivity(ctx, a.ID)
	if err != nil {
		h.Log.Error("list waypoint groups failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list groups")
		return
	}
	if groups == nil {
		groups = []models.WaypointGroup{}
	}
	httpjson.Respond(w, http.StatusOK, groups)
}

type createGroupRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateGroup handles POST /activities/{id}/groups. New groups are
// appended after the existing ones.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpjson.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if !models.WaypointGroupType(req.Type).Valid() {
		httpjson.Error(w, http.StatusBadRequest, "type must be ordered, unordered, or geofence")
		return
	}

	a, ok := h.writableActivity(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create waypoint group")
	defer cancel()

	g, err := h.Groups.Create(ctx, models.WaypointGroup{
		ActivityID: a.ID,
		Name:       req.Name,
		Type:       models.WaypointGroupType(req.Type),
	})
	if err != nil {
		h.Log.Error("create waypoint group failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not create group")
		return
	}
	if err := h.Activities.MarkDirty(ctx, a.ID); err != nil {
		h.Log.Warn("marking activity dirty failed",
			zap.String("activity_id", a.ID.Hex()), zap.Error(err))
	}
	httpjson.Respond(w, http.StatusCreated, g)
}
