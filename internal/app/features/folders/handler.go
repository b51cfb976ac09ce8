// internal/app/features/folders/handler.go
package folders

import (
	"context"
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/policy/folderpolicy"
	activitystore "github.com/dalemusser/trailhub/internal/app/store/activities"
	folderpermstore "github.com/dalemusser/trailhub/internal/app/store/folderperms"
	folderstore "github.com/dalemusser/trailhub/internal/app/store/folders"
	"github.com/dalemusser/trailhub/internal/app/system/authz"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/app/system/txn"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB         *mongo.Database
	Folders    *folderstore.Store
	Perms      *folderpermstore.Store
	Activities *activitystore.Store
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Folders:    folderstore.New(db),
		Perms:      folderpermstore.New(db),
		Activities: activitystore.New(db, logger),
		Log:        logger,
	}
}

type folderResponse struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	ParentID string              `json:"parent_id,omitempty"`
	OwnerID  string              `json:"owner_id"`
	Access   models.FolderAccess `json:"access"`
}

func toFolderResponse(f models.Folder, access models.FolderAccess) folderResponse {
	resp := folderResponse{
		ID:      f.ID.Hex(),
		Name:    f.Name,
		OwnerID: f.OwnerID.Hex(),
		Access:  access,
	}
	if f.ParentID != nil {
		resp.ParentID = f.ParentID.Hex()
	}
	return resp
}

func pathID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// folderListItem is a folderResponse annotated with how many
// activities sit directly in the folder.
type folderListItem struct {
	folderResponse
	ActivityCount int `json:"activity_count"`
}

// List handles GET /folders, returning every folder the caller can at
// least read, flat; clients assemble the tree from parent_id.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list folders")
	defer cancel()

	ids, err := folderpolicy.AccessibleFolderIDs(ctx, h.DB, ident)
	if err != nil {
		h.Log.Error("list folders: accessible set failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list folders")
		return
	}

	out := []folderListItem{}
	if len(ids) > 0 {
		cur, err := h.DB.Collection("folders").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			h.Log.Error("list folders: query failed", zap.Error(err))
			httpjson.Error(w, http.StatusInternalServerError, "could not list folders")
			return
		}
		defer cur.Close(ctx)
		var folders []models.Folder
		if err := cur.All(ctx, &folders); err != nil {
			h.Log.Error("list folders: decode failed", zap.Error(err))
			httpjson.Error(w, http.StatusInternalServerError, "could not list folders")
			return
		}
		counts, err := h.Activities.CountByFolders(ctx, ids)
		if err != nil {
			h.Log.Error("list folders: activity counts failed", zap.Error(err))
			httpjson.Error(w, http.StatusInternalServerError, "could not list folders")
			return
		}
		for _, f := range folders {
			access, err := folderpolicy.Resolve(ctx, h.DB, ident, f.ID)
			if err != nil {
				continue
			}
			out = append(out, folderListItem{
				folderResponse: toFolderResponse(f, access),
				ActivityCount:  counts[f.ID],
			})
		}
	}
	httpjson.Respond(w, http.StatusOK, out)
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// Create handles POST /folders. Creating a root folder requires only a
// session; creating a child requires write access to the parent. The
// caller becomes the owner.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)

	var req createFolderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpjson.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create folder")
	defer cancel()

	var parentID *primitive.ObjectID
	if req.ParentID != "" {
		pid, err := primitive.ObjectIDFromHex(req.ParentID)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid parent_id")
			return
		}
		access, err := folderpolicy.Resolve(ctx, h.DB, ident, pid)
		if err != nil {
			httpjson.Error(w, http.StatusNotFound, "parent folder not found")
			return
		}
		if !access.CanWrite {
			httpjson.Error(w, http.StatusForbidden, "write access to the parent folder is required")
			return
		}
		parentID = &pid
	}

	f, err := h.Folders.Create(ctx, models.Folder{
		Name:     req.Name,
		OwnerID:  ident.UserID,
		ParentID: parentID,
	})
	if err != nil {
		switch err {
		case folderstore.ErrDuplicateRootName:
			httpjson.Error(w, http.StatusConflict, err.Error())
		case folderstore.ErrParentNotFound:
			httpjson.Error(w, http.StatusNotFound, err.Error())
		default:
			h.Log.Error("create folder failed", zap.Error(err))
			httpjson.Error(w, http.StatusInternalServerError, "could not create folder")
		}
		return
	}
	httpjson.Respond(w, http.StatusCreated, toFolderResponse(f, models.FullAccess))
}

// Get handles GET /folders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	id, ok := pathID(r)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get folder")
	defer cancel()

	f, err := h.Folders.GetByID(ctx, id)
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}
	access, err := folderpolicy.Resolve(ctx, h.DB, ident, id)
	if err != nil || !access.CanRead {
		// Indistinguishable from a missing folder.
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}
	httpjson.Respond(w, http.StatusOK, toFolderResponse(f, access))
}

type updateFolderRequest struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

// Update handles PATCH /folders/{id}: rename and/or move. Both require
// write access to the folder; a move additionally requires write
// access to the new parent. Moving with "parent_id": "" lifts the
// folder to the top level.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	id, ok := pathID(r)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}

	var req updateFolderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update folder")
	defer cancel()

	if _, err := h.Folders.GetByID(ctx, id); err != nil {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}
	access, err := folderpolicy.Resolve(ctx, h.DB, ident, id)
	if err != nil || !access.CanRead {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}
	if !access.CanWrite {
		httpjson.Error(w, http.StatusForbidden, "write access to the folder is required")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			httpjson.Error(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		if err := h.Folders.Rename(ctx, id, *req.Name); err != nil {
			if err == folderstore.ErrDuplicateRootName {
				httpjson.Error(w, http.StatusConflict, err.Error())
				return
			}
			h.Log.Error("rename folder failed", zap.Error(err))
			httpjson.Error(w, http.StatusInternalServerError, "could not rename folder")
			return
		}
	}

	if req.ParentID != nil {
		var newParent *primitive.ObjectID
		if *req.ParentID != "" {
			pid, err := primitive.ObjectIDFromHex(*req.ParentID)
			if err != nil {
				httpjson.Error(w, http.StatusBadRequest, "invalid parent_id")
				return
			}
			parentAccess, err := folderpolicy.Resolve(ctx, h.DB, ident, pid)
			if err != nil {
				httpjson.Error(w, http.StatusNotFound, "parent folder not found")
				return
			}
			if !parentAccess.CanWrite {
				httpjson.Error(w, http.StatusForbidden, "write access to the new parent is required")
				return
			}
			newParent = &pid
		}
		if err := h.Folders.Move(ctx, id, newParent); err != nil {
			switch err {
			case folderstore.ErrCycle:
				httpjson.Error(w, http.StatusConflict, err.Error())
			case folderstore.ErrDuplicateRootName:
				httpjson.Error(w, http.StatusConflict, err.Error())
			case folderstore.ErrParentNotFound:
				httpjson.Error(w, http.StatusNotFound, err.Error())
			default:
				h.Log.Error("move folder failed", zap.Error(err))
				httpjson.Error(w, http.StatusInternalServerError, "could not move folder")
			}
			return
		}
	}

	f, err := h.Folders.GetByID(ctx, id)
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}
	httpjson.Respond(w, http.StatusOK, toFolderResponse(f, access))
}

// Delete handles DELETE /folders/{id}. The folder and every descendant
// folder are removed along with their grants; activities inside them
// are lifted out (folder_id cleared) rather than destroyed, so authors
// keep their work.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	id, ok := pathID(r)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete folder")
	defer cancel()

	if _, err := h.Folders.GetByID(ctx, id); err != nil {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}
	access, err := folderpolicy.Resolve(ctx, h.DB, ident, id)
	if err != nil || !access.CanRead {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}
	if !access.CanWrite {
		httpjson.Error(w, http.StatusForbidden, "write access to the folder is required")
		return
	}

	descendants, err := h.Folders.DescendantIDs(ctx, []primitive.ObjectID{id})
	if err != nil {
		h.Log.Error("delete folder: descendant walk failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete folder")
		return
	}
	doomed := append([]primitive.ObjectID{id}, descendants...)

	// Lifting activities, dropping grants, and dropping the folders
	// commit together; readers never see a half-deleted subtree.
	err = txn.WithTransaction(ctx, h.DB.Client(), h.Log, func(ctx context.Context) error {
		if _, err := h.DB.Collection("activities").UpdateMany(ctx,
			bson.M{"folder_id": bson.M{"$in": doomed}},
			bson.M{"$set": bson.M{"folder_id": nil, "unpublished_changes": true}}); err != nil {
			return err
		}
		if _, err := h.Perms.DeleteByFolders(ctx, doomed); err != nil {
			return err
		}
		_, err := h.Folders.DeleteMany(ctx, doomed)
		return err
	})
	if err != nil {
		h.Log.Error("delete folder failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete folder")
		return
	}

	h.Log.Info("folder deleted",
		zap.String("folder_id", id.Hex()),
		zap.Int("descendants", len(descendants)))
	w.WriteHeader(http.StatusNoContent)
}

// ListActivities handles GET /folders/{id}/activities.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ident := authz.FromRequest(r)
	id, ok := pathID(r)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list folder activities")
	defer cancel()

	access, err := folderpolicy.Resolve(ctx, h.DB, ident, id)
	if err != nil || !access.CanRead {
		httpjson.Error(w, http.StatusNotFound, "folder not found")
		return
	}

	activities, err := h.Activities.ListByFolder(ctx, &id)
	if err != nil {
		h.Log.Error("list folder activities failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list activities")
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	httpjson.Respond(w, http.StatusOK, activities)
}
