// internal/app/features/waypoints/handler.go
package waypoints

import (
	"context"
	"net/http"

	activitystore "github.com/dalemusser/trailhub/internal/app/store/activities"
	mediastore "github.com/dalemusser/trailhub/internal/app/store/media"
	waypointgroupstore "github.com/dalemusser/trailhub/internal/app/store/waypointgroups"
	waypointstore "github.com/dalemusser/trailhub/internal/app/store/waypoints"
	"github.com/dalemusser/trailhub/internal/app/system/authz"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves waypoint groups, waypoints, and waypoint media.
// Authorization always climbs to the owning activity: whoever can
// write the activity can edit everything beneath it.
type Handler struct {
	DB         *mongo.Database
	Activities *activitystore.Store
	Groups     *waypointgroupstore.Store
	Waypoints  *waypointstore.Store
	Media      *mediastore.Store
	Storage    storage.Store
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, store storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Activities: activitystore.New(db, logger),
		Groups:     waypointgroupstore.New(db),
		Waypoints:  waypointstore.New(db, logger),
		Media:      mediastore.New(db),
		Storage:    store,
		Log:        logger,
	}
}

func pathObjectID(r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	return id, err == nil
}

type gateFunc func(ctx context.Context, db *mongo.Database, ident authz.Identity, a models.Activity) (bool, error)

// activityForGroup climbs from a group to its activity and applies the
// gate. Denied access reads as not-found.
func (h *Handler) activityForGroup(ctx context.Context, r *http.Request, groupID primitive.ObjectID, gate gateFunc) (models.WaypointGroup, models.Activity, bool) {
	ident := authz.FromRequest(r)

	g, err := h.Groups.GetByID(ctx, groupID)
	if err != nil {
		return models.WaypointGroup{}, models.Activity{}, false
	}
	a, err := h.Activities.GetByID(ctx, g.ActivityID)
	if err != nil {
		return models.WaypointGroup{}, models.Activity{}, false
	}
	allowed, err := gate(ctx, h.DB, ident, a)
	if err != nil || !allowed {
		return models.WaypointGroup{}, models.Activity{}, false
	}
	return g, a, true
}

// activityForWaypoint climbs waypoint -> group -> activity.
func (h *Handler) activityForWaypoint(ctx context.Context, r *http.Request, waypointID primitive.ObjectID, gate gateFunc) (models.Waypoint, models.Activity, bool) {
	wp, err := h.Waypoints.GetByID(ctx, waypointID)
	if err != nil {
		return models.Waypoint{}, models.Activity{}, false
	}
	_, a, ok := h.activityForGroup(ctx, r, wp.GroupID, gate)
	if !ok {
		return models.Waypoint{}, models.Activity{}, false
	}
	return wp, a, true
}

// markDirty flags the activity as having unpublished changes. Edits
// that reach a published activity's content must leave this trail, so
// a failure here fails the request.
func (h *Handler) markDirty(ctx context.Context, w http.ResponseWriter, activityID primitive.ObjectID) bool {
	if err := h.Activities.MarkDirty(ctx, activityID); err != nil {
		h.Log.Error("marking activity dirty failed",
			zap.String("activity_id", activityID.Hex()), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not record the change")
		return false
	}
	return true
}
