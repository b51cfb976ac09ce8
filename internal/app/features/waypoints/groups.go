// internal/app/features/waypoints/groups.go
package waypoints

import (
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/policy/folderpolicy"
	"github.com/dalemusser/trailhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type renameGroupRequest struct {
	Name string `json:"name"`
}

// RenameGroup handles PATCH /groups/{groupID}.
func (h *Handler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	var req renameGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpjson.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	groupID, ok := pathObjectID(r, "groupID")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "group not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "rename waypoint group")
	defer cancel()

	g, a, ok := h.activityForGroup(ctx, r, groupID, folderpolicy.CanWriteActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "group not found")
		return
	}

	if err := h.Groups.Rename(ctx, g.ID, req.Name); err != nil {
		h.Log.Error("rename waypoint group failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not rename group")
		return
	}
	if !h.markDirty(ctx, w, a.ID) {
		return
	}
	g.Name = req.Name
	httpjson.Respond(w, http.StatusOK, g)
}

// DeleteGroup handles DELETE /groups/{groupID}: the group, its
// waypoints, and their media records and blobs.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathObjectID(r, "groupID")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "group not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete waypoint group")
	defer cancel()

	g, a, ok := h.activityForGroup(ctx, r, groupID, folderpolicy.CanWriteActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "group not found")
		return
	}

	waypointIDs, err := h.Waypoints.IDsByGroups(ctx, []primitive.ObjectID{g.ID})
	if err != nil {
		h.Log.Error("delete group: listing waypoints failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete group")
		return
	}
	media, err := h.Media.ListByWaypoints(ctx, waypointIDs)
	if err != nil {
		h.Log.Error("delete group: listing media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete group")
		return
	}

	if _, err := h.Media.DeleteByWaypoints(ctx, waypointIDs); err != nil {
		h.Log.Error("delete group: removing media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete group")
		return
	}
	if _, err := h.Waypoints.DeleteByGroups(ctx, []primitive.ObjectID{g.ID}); err != nil {
		h.Log.Error("delete group: removing waypoints failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete group")
		return
	}
	if _, err := h.Groups.Delete(ctx, g.ID); err != nil {
		h.Log.Error("delete waypoint group failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete group")
		return
	}

	for _, m := range media {
		if err := h.Storage.Delete(ctx, m.MediaPath); err != nil {
			h.Log.Warn("delete group: orphaned media blob",
				zap.String("path", m.MediaPath), zap.Error(err))
		}
	}

	if !h.markDirty(ctx, w, a.ID) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWaypoints handles GET /groups/{groupID}/waypoints. Ordered
// groups come back in route order.
func (h *Handler) ListWaypoints(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathObjectID(r, "groupID")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "group not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list waypoints")
	defer cancel()

	g, _, ok := h.activityForGroup(ctx, r, groupID, folderpolicy.CanReadActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "group not found")
		return
	}

	wps, err := h.Waypoints.ListByGroup(ctx, g.ID)
	if err != nil {
		h.Log.Error("list waypoints failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list waypoints")
		return
	}
	if wps == nil {
		wps = []models.Waypoint{}
	}
	httpjson.Respond(w, http.StatusOK, wps)
}

type createWaypointRequest struct {
	Name             string  `json:"name"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Description      string  `json:"description,omitempty"`
	DepartureCallout string  `json:"departure_callout,omitempty"`
	ArrivalCallout   string  `json:"arrival_callout,omitempty"`
}

// CreateWaypoint handles POST /groups/{groupID}/waypoints. In an
// ordered group the new waypoint lands at the end of the route.
func (h *Handler) CreateWaypoint(w http.ResponseWriter, r *http.Request) {
	var req createWaypointRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpjson.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		httpjson.Error(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	groupID, ok := pathObjectID(r, "groupID")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "group not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create waypoint")
	defer cancel()

	g, a, ok := h.activityForGroup(ctx, r, groupID, folderpolicy.CanWriteActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "group not found")
		return
	}

	wp, err := h.Waypoints.Create(ctx, models.Waypoint{
		GroupID:          g.ID,
		Name:             req.Name,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Description:      htmlsanitize.Sanitize(req.Description),
		DepartureCallout: req.DepartureCallout,
		ArrivalCallout:   req.ArrivalCallout,
	})
	if err != nil {
		h.Log.Error("create waypoint failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not create waypoint")
		return
	}
	if !h.markDirty(ctx, w, a.ID) {
		return
	}
	httpjson.Respond(w, http.StatusCreated, wp)
}
