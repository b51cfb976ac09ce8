// internal/domain/models/activity.go
package models

import (
	"path"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType classifies an activity.
type ActivityType string

const (
	ActivityOrienteering ActivityType = "orienteering"
	ActivityGuidedTour   ActivityType = "guided_tour"
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	return t == ActivityOrienteering || t == ActivityGuidedTour
}

// Activity is an authored tour or orienteering route. It is owned
// directly by its author when FolderID is nil; when FolderID is set,
// authorization flows through the folder and its ancestor grants, not
// through AuthorID.
//
// UnpublishedChanges is set by every write path that touches the
// activity or any of its descendant entities (groups, waypoints,
// media) and cleared only by an explicit publish.
type Activity struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	AuthorID    primitive.ObjectID `bson:"author_id" json:"author_id"`
	AuthorName  string             `bson:"author_name" json:"author_name"`
	AuthorEmail string             `bson:"author_email,omitempty" json:"author_email,omitempty"`

	Name        string       `bson:"name" json:"name"`
	NameCI      string       `bson:"name_ci" json:"-"`
	Description string       `bson:"description" json:"description"`
	Type        ActivityType `bson:"type" json:"type"`
	Locale      string       `bson:"locale" json:"locale"`

	Start   *time.Time `bson:"start,omitempty" json:"start,omitempty"`
	End     *time.Time `bson:"end,omitempty" json:"end,omitempty"`
	Expires bool       `bson:"expires" json:"expires"`

	ImagePath string `bson:"image_path,omitempty" json:"image_path,omitempty"`
	ImageAlt  string `bson:"image_alt,omitempty" json:"image_alt,omitempty"`

	FolderID *primitive.ObjectID `bson:"folder_id,omitempty" json:"folder_id,omitempty"`

	UnpublishedChanges bool       `bson:"unpublished_changes" json:"unpublished_changes"`
	LastPublished      *time.Time `bson:"last_published,omitempty" json:"last_published,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FileDirectory is the blob-store directory for this activity's files.
func (a Activity) FileDirectory() string {
	return path.Join("activities", a.ID.Hex())
}

// MediaDirectory is the blob-store directory for waypoint media files
// belonging to this activity.
func (a Activity) MediaDirectory() string {
	return path.Join(a.FileDirectory(), "waypoints_media")
}

// CanLink reports whether the activity has ever been published.
func (a Activity) CanLink() bool {
	return a.LastPublished != nil
}
