// internal/app/features/waypoints/waypoints.go
package waypoints

import (
	"errors"
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/policy/folderpolicy"
	waypointstore "github.com/dalemusser/trailhub/internal/app/store/waypoints"
	"github.com/dalemusser/trailhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Get handles GET /waypoints/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get waypoint")
	defer cancel()

	wp, _, ok := h.activityForWaypoint(ctx, r, id, folderpolicy.CanReadActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}
	httpjson.Respond(w, http.StatusOK, wp)
}

type updateWaypointRequest struct {
	Name             *string  `json:"name,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Description      *string  `json:"description,omitempty"`
	DepartureCallout *string  `json:"departure_callout,omitempty"`
	ArrivalCallout   *string  `json:"arrival_callout,omitempty"`
}

// Update handles PATCH /waypoints/{id}. Position is not editable here;
// use the move endpoint.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateWaypointRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, ok := pathObjectID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update waypoint")
	defer cancel()

	wp, a, ok := h.activityForWaypoint(ctx, r, id, folderpolicy.CanWriteActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			httpjson.Error(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		wp.Name = *req.Name
	}
	if req.Latitude != nil {
		if *req.Latitude < -90 || *req.Latitude > 90 {
			httpjson.Error(w, http.StatusBadRequest, "latitude out of range")
			return
		}
		wp.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		if *req.Longitude < -180 || *req.Longitude > 180 {
			httpjson.Error(w, http.StatusBadRequest, "longitude out of range")
			return
		}
		wp.Longitude = *req.Longitude
	}
	if req.Description != nil {
		wp.Description = htmlsanitize.Sanitize(*req.Description)
	}
	if req.DepartureCallout != nil {
		wp.DepartureCallout = *req.DepartureCallout
	}
	if req.ArrivalCallout != nil {
		wp.ArrivalCallout = *req.ArrivalCallout
	}

	if err := h.Waypoints.UpdateInfo(ctx, wp.ID, wp); err != nil {
		if errors.Is(err, waypointstore.ErrNotFound) {
			httpjson.Error(w, http.StatusNotFound, "waypoint not found")
			return
		}
		h.Log.Error("update waypoint failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not update waypoint")
		return
	}
	if !h.markDirty(ctx, w, a.ID) {
		return
	}
	httpjson.Respond(w, http.StatusOK, wp)
}

type moveWaypointRequest struct {
	Index int `json:"index"`
}

// Move handles POST /waypoints/{id}/move: shifts an ordered waypoint
// one position up or down, swapping places with its neighbor. Larger
// jumps are a sequence of single-step moves. The response carries the
// group's full post-move ordering, since the swap repositions the
// neighbor as well.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req moveWaypointRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, ok := pathObjectID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "move waypoint")
	defer cancel()

	wp, _, ok := h.activityForWaypoint(ctx, r, id, folderpolicy.CanWriteActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	if err := h.Waypoints.Move(ctx, wp.ID, req.Index); err != nil {
		switch {
		case errors.Is(err, waypointstore.ErrNegativeIndex),
			errors.Is(err, waypointstore.ErrNonAdjacentMove),
			errors.Is(err, waypointstore.ErrNotOrdered):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, waypointstore.ErrIndexConflict):
			httpjson.Error(w, http.StatusConflict, err.Error())
		default:
			h.Log.Error("move waypoint failed", zap.Error(err))
			httpjson.Error(w, http.StatusInternalServerError, "could not move waypoint")
		}
		return
	}

	ordering, err := h.Waypoints.ListByGroup(ctx, wp.GroupID)
	if err != nil {
		h.Log.Error("move waypoint: listing group failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not move waypoint")
		return
	}
	httpjson.Respond(w, http.StatusOK, map[string]any{"waypoints": ordering})
}

// Delete handles DELETE /waypoints/{id}: the waypoint and its media.
// In an ordered group the waypoints behind it close the gap.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete waypoint")
	defer cancel()

	wp, _, ok := h.activityForWaypoint(ctx, r, id, folderpolicy.CanWriteActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	media, err := h.Media.ListByWaypoint(ctx, wp.ID)
	if err != nil {
		h.Log.Error("delete waypoint: listing media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete waypoint")
		return
	}
	if _, err := h.Media.DeleteByWaypoints(ctx, []primitive.ObjectID{wp.ID}); err != nil {
		h.Log.Error("delete waypoint: removing media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete waypoint")
		return
	}
	if err := h.Waypoints.Delete(ctx, wp.ID); err != nil {
		h.Log.Error("delete waypoint failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete waypoint")
		return
	}

	for _, m := range media {
		if err := h.Storage.Delete(ctx, m.MediaPath); err != nil {
			h.Log.Warn("delete waypoint: orphaned media blob",
				zap.String("path", m.MediaPath), zap.Error(err))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
