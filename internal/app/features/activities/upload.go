// internal/app/features/activities/upload.go
package activities

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/limits"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadInfo contains metadata about an uploaded file.
type UploadInfo struct {
	Path        string
	FileName    string
	Size        int64
	ContentType string
}

// uploadFile stores a file under dir with a uuid-prefixed name and
// returns upload info.
func uploadFile(ctx context.Context, store storage.Store, dir, filename string, reader io.Reader, size int64, contentType string) (UploadInfo, error) {
	uniqueName := fmt.Sprintf("%s-%s", uuid.New().String()[:8], sanitizeFilename(filename))
	blobPath := path.Join(dir, uniqueName)

	opts := &storage.PutOptions{
		ContentType: contentType,
	}
	if err := store.Put(ctx, blobPath, reader, opts); err != nil {
		return UploadInfo{}, fmt.Errorf("failed to upload file: %w", err)
	}

	return UploadInfo{
		Path:        blobPath,
		FileName:    filename,
		Size:        size,
		ContentType: contentType,
	}, nil
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

// detectContentType sniffs the content type from the file's first
// bytes, falling back to the declared header.
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

// UploadImage handles POST /activities/{id}/image: multipart upload of
// a cover image. Replacing the cover deletes the previous blob. The
// optional "alt" field sets the image alt text.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	a, ok := h.writableActivity(w, r)
	if !ok {
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
	if !strings.HasPrefix(contentType, "image/") {
		httpjson.Error(w, http.StatusBadRequest, "cover must be an image")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "upload cover image")
	defer cancel()

	info, err := uploadFile(ctx, h.Storage, a.FileDirectory(), header.Filename, file, header.Size, contentType)
	if err != nil {
		h.Log.Error("cover image upload failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not upload image")
		return
	}

	alt := r.FormValue("alt")
	if err := h.Activities.SetImage(ctx, a.ID, info.Path, alt); err != nil {
		if delErr := h.Storage.Delete(ctx, info.Path); delErr != nil {
			h.Log.Warn("failed to clean up cover image after update error",
				zap.String("path", info.Path), zap.Error(delErr))
		}
		h.Log.Error("setting cover image failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not upload image")
		return
	}

	if a.ImagePath != "" && a.ImagePath != info.Path {
		if err := h.Storage.Delete(ctx, a.ImagePath); err != nil {
			h.Log.Warn("failed to delete previous cover image",
				zap.String("path", a.ImagePath), zap.Error(err))
		}
	}

	a.ImagePath = info.Path
	a.ImageAlt = alt
	a.UnpublishedChanges = true
	httpjson.Respond(w, http.StatusOK, a)
}
