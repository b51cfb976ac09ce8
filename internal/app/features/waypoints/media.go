// internal/app/features/waypoints/media.go
package waypoints

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/dalemusser/trailhub/internal/app/policy/folderpolicy"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/limits"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// mediaTypeFor maps a sniffed mime type to a media classification.
func mediaTypeFor(contentType string) (models.MediaType, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaImage, nil
	case strings.HasPrefix(contentType, "audio/"):
		return models.MediaAudio, nil
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaVideo, nil
	}
	return "", fmt.Errorf("unsupported media type %q", contentType)
}

// uploadBlob stores a media file under dir with a uuid-prefixed name.
func (h *Handler) uploadBlob(ctx context.Context, dir, filename string, reader io.Reader, contentType string) (string, error) {
	uniqueName := fmt.Sprintf("%s-%s", uuid.New().String()[:8], sanitizeFilename(filename))
	blobPath := path.Join(dir, uniqueName)

	opts := &storage.PutOptions{
		ContentType: contentType,
	}
	if err := h.Storage.Put(ctx, blobPath, reader, opts); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return blobPath, nil
}

// sanitizeFilename removes or replaces characters that could be
// problematic in filenames.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}

	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}

func detectContentType(file io.ReadSeeker, declared string) string {
	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	file.Seek(0, io.SeekStart)

	if n == 0 {
		if declared != "" {
			return declared
		}
		return "application/octet-stream"
	}
	detected := http.DetectContentType(buf[:n])
	if detected == "application/octet-stream" && declared != "" {
		return declared
	}
	return detected
}

// ListMedia handles GET /waypoints/{id}/media, in attachment order.
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list waypoint media")
	defer cancel()

	wp, _, ok := h.activityForWaypoint(ctx, r, id, folderpolicy.CanReadActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	media, err := h.Media.ListByWaypoint(ctx, wp.ID)
	if err != nil {
		h.Log.Error("list waypoint media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list media")
		return
	}
	if media == nil {
		media = []models.WaypointMedia{}
	}
	httpjson.Respond(w, http.StatusOK, media)
}

// UploadMedia handles POST /waypoints/{id}/media: multipart upload of
// an image, audio, or video attachment. The optional "description"
// field doubles as alt text for images.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxMediaUploadSize)
	if err := r.ParseMultipartForm(limits.MaxMediaMemory); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := detectContentType(file, header.Header.Get("Content-Type"))
	mediaType, err := mediaTypeFor(contentType)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "upload waypoint media")
	defer cancel()

	wp, a, ok := h.activityForWaypoint(ctx, r, id, folderpolicy.CanWriteActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return
	}

	blobPath, err := h.uploadBlob(ctx, a.MediaDirectory(), header.Filename, file, contentType)
	if err != nil {
		h.Log.Error("waypoint media upload failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not upload media")
		return
	}

	m, err := h.Media.Create(ctx, models.WaypointMedia{
		WaypointID:  wp.ID,
		MediaPath:   blobPath,
		Type:        mediaType,
		MimeType:    contentType,
		Description: r.FormValue("description"),
	})
	if err != nil {
		if delErr := h.Storage.Delete(ctx, blobPath); delErr != nil {
			h.Log.Warn("failed to clean up media blob after create error",
				zap.String("path", blobPath), zap.Error(delErr))
		}
		h.Log.Error("create waypoint media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not upload media")
		return
	}

	if !h.markDirty(ctx, w, a.ID) {
		return
	}
	httpjson.Respond(w, http.StatusCreated, m)
}

type describeMediaRequest struct {
	Description string `json:"description"`
}

// DescribeMedia handles PATCH /waypoints/{id}/media/{mediaID}.
func (h *Handler) DescribeMedia(w http.ResponseWriter, r *http.Request) {
	var req describeMediaRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, m, a, ok := h.loadMedia(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "describe waypoint media")
	defer cancel()

	if err := h.Media.UpdateDescription(ctx, m.ID, req.Description); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpjson.Error(w, http.StatusNotFound, "media not found")
			return
		}
		h.Log.Error("describe waypoint media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not update media")
		return
	}
	if !h.markDirty(ctx, w, a.ID) {
		return
	}
	m.Description = req.Description
	httpjson.Respond(w, http.StatusOK, m)
}

// DeleteMedia handles DELETE /waypoints/{id}/media/{mediaID}: the
// record and its blob.
func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	_, m, a, ok := h.loadMedia(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete waypoint media")
	defer cancel()

	if _, err := h.Media.Delete(ctx, m.ID); err != nil {
		h.Log.Error("delete waypoint media failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not delete media")
		return
	}
	if err := h.Storage.Delete(ctx, m.MediaPath); err != nil {
		h.Log.Warn("delete media: orphaned blob",
			zap.String("path", m.MediaPath), zap.Error(err))
	}
	if !h.markDirty(ctx, w, a.ID) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadMedia resolves {id}/{mediaID}, verifies the media belongs to the
// waypoint, and enforces write access on the owning activity.
func (h *Handler) loadMedia(w http.ResponseWriter, r *http.Request) (models.Waypoint, models.WaypointMedia, models.Activity, bool) {
	id, ok := pathObjectID(r, "id")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return models.Waypoint{}, models.WaypointMedia{}, models.Activity{}, false
	}
	mediaID, ok := pathObjectID(r, "mediaID")
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "media not found")
		return models.Waypoint{}, models.WaypointMedia{}, models.Activity{}, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load waypoint media")
	defer cancel()

	wp, a, ok := h.activityForWaypoint(ctx, r, id, folderpolicy.CanWriteActivity)
	if !ok {
		httpjson.Error(w, http.StatusNotFound, "waypoint not found")
		return models.Waypoint{}, models.WaypointMedia{}, models.Activity{}, false
	}
	m, err := h.Media.GetByID(ctx, mediaID)
	if err != nil || m.WaypointID != wp.ID {
		httpjson.Error(w, http.StatusNotFound, "media not found")
		return models.Waypoint{}, models.WaypointMedia{}, models.Activity{}, false
	}
	return wp, m, a, true
}
