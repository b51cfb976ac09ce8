// internal/domain/models/waypointmedia.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaType classifies a waypoint media attachment.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// MediaTypes is the canonical list, used by schema validators.
var MediaTypes = []MediaType{MediaImage, MediaAudio, MediaVideo}

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaImage || t == MediaAudio || t == MediaVideo
}

// WaypointMedia is a media attachment owned exclusively by its waypoint.
// MediaPath references the stored blob; deleting the media record also
// deletes the blob, and deleting the waypoint deletes its media.
// For images, Description is the alt text.
type WaypointMedia struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	WaypointID primitive.ObjectID `bson:"waypoint_id" json:"waypoint_id"`

	MediaPath   string    `bson:"media_path" json:"media_path"`
	Type        MediaType `bson:"type" json:"type"`
	MimeType    string    `bson:"mime_type" json:"mime_type"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Index       *int      `bson:"index,omitempty" json:"index,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
