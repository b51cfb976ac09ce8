// internal/app/features/activities/handler.go
package activities

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/policy/folderpolicy"
	activitystore "github.com/dalemusser/trailhub/internal/app/store/activities"
	mediastore "github.com/dalemusser/trailhub/internal/app/store/media"
	waypointgroupstore "github.com/dalemusser/trailhub/internal/app/store/waypointgroups"
	waypointstore "github.com/dalemusser/trailhub/internal/app/store/waypoints"
	"github.com/dalemusser/trailhub/internal/app/system/authz"
	"github.com/dalemusser/trailhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/normalize"
	"github.com/dalemusser/trailhub/internal/app/system/paging"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

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

func pathID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// readableActivity and writableActivity load the activity and enforce
// access, writing the error response themselves when the caller may
// not proceed. Failed authorization is reported as not-found so probes
// cannot distinguish hidden activities from missing ones.
func (h *Handler) readableActivity(w http.ResponseWriter, r *http.Request) (models.Activity, bool) {
	return h.loadActivity(w, r, folderpolicy.CanReadActivity)
}

func (h *Handler) writableActivity(w http.ResponseWriter, r *http.Request) (models.Activity, bool) {
	return h.loadActivity(w, r, folderpolicy.CanWriteActivity)
}

func (h *Handler) loadActivity(w http.ResponseWriter, r *http.Request,
	gate func(ctx context.Context, db *mongo.Database, ident authz.Identity, a models.Activity) (bool, error)) (models.Activity, bool) {

	ident := authz.FromRequest(r)
	id, ok := pathID(r)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "activity not found")
		return models.Activity{}, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load activity")
	defer cancel()

	a, err := h.Activities.GetByID(ctx, id)
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "activity not found")
		return models.Activity{}, false
	}
	allowed, err := gate(ctx, h.DB, ident, a)
	if err != nil {
		h.Log.Error("activity gate failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not load activity")
		return models.Activity{}, false
	}
	if !allowed {
		httpjson.Error(w, http.StatusNotFound, "activity not found")
		return models.Activity{}, false
	}
	return a, true
}

type listResponse struct {
	Items      []models.Activity `json:"items"`
	Total      int64             `json:"total"`
	HasPrev    bool              `json:"has_prev"`
	HasNext    bool              `json:"has_next"`
	PrevCursor string            `json:"prev_cursor,omitempty"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// List handles GET /activities. With no filter it returns every
// activity the caller can reach: their own plus those in accessible
// folders. ?folder_id=<hex> lists a readable folder's activities;
// ?folder_id=none lists the caller's unfiled ones. ?q= prefix-searches
// names; before/after cursors page the result.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	q := query.Search(r, "q")
	after := query.Get(r, "after")
	before := query.Get(r, "before")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list activities")
	defer cancel()

	base := bson.M{}
	switch filter := normalize.QueryParam(r.URL.Query().Get("folder_id")); filter {
	case "":
		accessible, err := folderpolicy.AccessibleFolderIDs(ctx, h.DB, ident)
		if err != nil {
			h.Log.Error("list activities: accessible set failed", zap.Error(err))
			httpjson.Error(w, http.StatusInternalServerError, "could not list activities")
			return
		}
		or := []bson.M{{"author_id": ident.UserID}}
		if len(accessible) > 0 {
			or = append(or, bson.M{"folder_id": bson.M{"$in": accessible}})
		}
		base["$or"] = or
	case "none":
		base["author_id"] = ident.UserID
		base["folder_id"] = nil
	default:
		folderID, err := primitive.ObjectIDFromHex(filter)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "folder_id must be a folder id or \"none\"")
			return
		}
		access, err := folderpolicy.Resolve(ctx, h.DB, ident, folderID)
		if err != nil || !access.CanRead {
			httpjson.Error(w, http.StatusNotFound, "folder not found")
			return
		}
		base["folder_id"] = folderID
	}
	if lo, hi := text.PrefixRange(q); lo != "" {
		base["name_ci"] = bson.M{"$gte": lo, "$lt": hi}
	}

	total, err := h.Activities.Count(ctx, base)
	if err != nil {
		h.Log.Error("list activities: count failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list activities")
		return
	}

	find := options.Find()
	cfg := paging.ConfigureKeyset(before, after)
	cfg.ApplyToFind(find, "name_ci")
	f := base
	if ks := cfg.KeysetWindow("name_ci"); ks != nil {
		// The window and the base filter can both carry $or (cursor
		// tiebreak vs. the accessibility union), so they combine under
		// $and instead of merging key by key.
		clauses := []bson.M{ks}
		for k, v := range base {
			clauses = append(clauses, bson.M{k: v})
		}
		f = bson.M{"$and": clauses}
	}

	rows, err := h.Activities.Find(ctx, f, find)
	if err != nil {
		h.Log.Error("list activities failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list activities")
		return
	}
	if cfg.Direction == paging.Backward {
		paging.Reverse(rows)
	}
	page := paging.TrimPage(&rows, before, after)
	prev, next := paging.BuildCursors(rows,
		func(a models.Activity) string { return a.NameCI },
		func(a models.Activity) primitive.ObjectID { return a.ID })

	if rows == nil {
		rows = []models.Activity{}
	}
	resp := listResponse{
		Items:   rows,
		Total:   total,
		HasPrev: page.HasPrev,
		HasNext: page.HasNext,
	}
	if page.HasPrev {
		resp.PrevCursor = prev
	}
	if page.HasNext {
		resp.NextCursor = next
	}
	httpjson.Respond(w, http.StatusOK, resp)
}

type createActivityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Locale      string `json:"locale,omitempty"`
	FolderID    string `json:"folder_id,omitempty"`
}

// Create handles POST /activities. Filing into a folder requires write
// access to it; an unfiled activity belongs to its author alone. The
// activity starts with its two default waypoint groups.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)

	var req createActivityRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpjson.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Type != "" && !models.ActivityType(req.Type).Valid() {
		httpjson.Error(w, http.StatusBadRequest, "type must be guided_tour or orienteering")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create activity")
	defer cancel()

	var folderID *primitive.ObjectID
	if req.FolderID != "" {
		fid, err := primitive.ObjectIDFromHex(req.FolderID)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid folder_id")
			return
		}
		access, err := folderpolicy.Resolve(ctx, h.DB, ident, fid)
		if err != nil {
			httpjson.Error(w, http.StatusNotFound, "folder not found")
			return
		}
		if !access.CanWrite {
			httpjson.Error(w, http.StatusForbidden, "write access to the folder is required")
			return
		}
		folderID = &fid
	}

	a, err := h.Activities.Create(ctx, models.Activity{
		AuthorID:    ident.UserID,
		AuthorName:  ident.Name,
		AuthorEmail: ident.Email,
		Name:        req.Name,
		Description: htmlsanitize.Sanitize(req.Description),
		Type:        models.ActivityType(req.Type),
		Locale:      req.Locale,
		FolderID:    folderID,
	})
	if err != nil {
		h.Log.Error("create activity failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not create activity")
		return
	}
	httpjson.Respond(w, http.StatusCreated, a)
}

// Get handles GET /activities/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.readableActivity(w, r)
	if !ok {
		return
	}
	httpjson.Respond(w, http.StatusOK, a)
}

type updateActivityRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
	Locale      *string `json:"locale,omitempty"`
	Expires     *bool   `json:"expires,omitempty"`
}

// Update handles PATCH /activities/{id}. Any edit flags the activity
// as having unpublished changes.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateActivityRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, ok := h.writableActivity(w, r)
	if !ok {
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			httpjson.Error(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		a.Name = *req.Name
	}
	if req.Description != nil {
		a.Description = htmlsanitize.Sanitize(*req.Description)
	}
	if req.Type != nil {
		if !models.ActivityType(*req.Type).Valid() {
			httpjson.Error(w, http.StatusBadRequest, "type must be guided_tour or orienteering")
			return
		}
		a.Type = models.ActivityType(*req.Type)
	}
	if req.Locale != nil {
		a.Locale = *req.Locale
	}
	if req.Expires != nil {
		a.Expires = *req.Expires
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update activity")
	defer cancel()

	if err := h.Activities.UpdateInfo(ctx, a.ID, a); err != nil {
		if errors.Is(err, activitystore.ErrNotFound) {
			httpjson.Error(w, http.StatusNotFound, "activity not found")
			return
		}
		h.Log.Error("update activity failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not update activity")
		return
	}
	a.UnpublishedChanges = true
	httpjson.Respond(w, http.StatusOK, a)
}

type setFolderRequest struct {
	FolderID string `json:"folder_id"`
}

// SetFolder handles PUT /activities/{id}/folder: files the activity
// into a folder, or unfiles it with "folder_id": "".
func (h *Handler) SetFolder(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)

	var req setFolderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, ok := h.writableActivity(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "move activity")
	defer cancel()

	var folderID *primitive.ObjectID
	if req.FolderID != "" {
		fid, err := primitive.ObjectIDFromHex(req.FolderID)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid folder_id")
			return
		}
		access, err := folderpolicy.Resolve(ctx, h.DB, ident, fid)
		if err != nil {
			httpjson.Error(w, http.StatusNotFound, "folder not found")
			return
		}
		if !access.CanWrite {
			httpjson.Error(w, http.StatusForbidden, "write access to the folder is required")
			return
		}
		folderID = &fid
	}

	if err := h.Activities.SetFolder(ctx, a.ID, folderID); err != nil {
		h.Log.Error("move activity failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not move activity")
		return
	}
	a.FolderID = folderID
	a.UnpublishedChanges = true
	httpjson.Respond(w, http.StatusOK, a)
}

// Publish handles POST /activities/{id}/publish: clears the
// unpublished-changes flag and stamps the publish time. This is the
// only operation that clears the flag.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	a, ok := h.writableActivity(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "publish activity")
	defer cancel()

	published, err := h.Activities.Publish(ctx, a.ID)
	if err != nil {
		if errors.Is(err, activitystore.ErrNotFound) {
			httpjson.Error(w, http.StatusNotFound, "activity not found")
			return
		}
		h.Log.Error("publish activity failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not publish activity")
		return
	}
	h.Log.Info("activity published",
		zap.String("activity_id", published.ID.Hex()),
		zap.String("name", published.Name))
	httpjson.Respond(w, http.StatusOK, published)
}

// Delete handles DELETE /activities/{id}: the activity, its waypoint
// groups, their waypoints, and all media records and blobs.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := h.writableActivity(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete activity")
	defer cancel()

	groupIDs, err := h.Groups.IDsByActivity(ctx, a.ID)
	if err != nil {
		h.Log.Error("delete activity: listing groups failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete activity")
		return
	}
	waypointIDs, err := h.Waypoints.IDsByGroups(ctx, groupIDs)
	if err != nil {
		h.Log.Error("delete activity: listing waypoints failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete activity")
		return
	}

	// Collect blob paths before the records go away.
	media, err := h.Media.ListByWaypoints(ctx, waypointIDs)
	if err != nil {
		h.Log.Error("delete activity: listing media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete activity")
		return
	}

	if _, err := h.Media.DeleteByWaypoints(ctx, waypointIDs); err != nil {
		h.Log.Error("delete activity: removing media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete activity")
		return
	}
	if _, err := h.Waypoints.DeleteByGroups(ctx, groupIDs); err != nil {
		h.Log.Error("delete activity: removing waypoints failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete activity")
		return
	}
	if _, err := h.Groups.DeleteByActivity(ctx, a.ID); err != nil {
		h.Log.Error("delete activity: removing groups failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete activity")
		return
	}
	if _, err := h.Activities.Delete(ctx, a.ID); err != nil {
		h.Log.Error("delete activity failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete activity")
		return
	}

	// Blob cleanup is best effort; records are already gone.
	for _, m := range media {
		if err := h.Storage.Delete(ctx, m.MediaPath); err != nil {
			h.Log.Warn("delete activity: orphaned media blob",
				zap.String("path", m.MediaPath), zap.Error(err))
		}
	}
	if a.ImagePath != "" {
		if err := h.Storage.Delete(ctx, a.ImagePath); err != nil {
			h.Log.Warn("delete activity: orphaned cover image",
				zap.String("path", a.ImagePath), zap.Error(err))
		}
	}

	h.Log.Info("activity deleted",
		zap.String("activity_id", a.ID.Hex()),
		zap.Int("waypoints", len(waypointIDs)))
	w.WriteHeader(http.StatusNoContent)
}
