// internal/app/system/limits/limits.go
package limits

// Request body size limits for various features.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBodySize is the maximum size for JSON request bodies.
	MaxJSONBodySize = 1 << 20 // 1 MB

	// MaxMediaUploadSize is the maximum size for a waypoint media upload
	// (multipart form, one file per request).
	MaxMediaUploadSize = 64 << 20 // 64 MB

	// MaxMediaMemory is how much of a multipart upload is held in memory
	// before spilling to temp files (passed to ParseMultipartForm).
	MaxMediaMemory = 8 << 20 // 8 MB
)
