// internal/domain/models/folder.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Folder is a node in the sharing hierarchy. Folders own activities and
// child folders; read/write access granted on a folder is inherited by
// every descendant.
//
// NOTE:
//   - ParentID is nil for root folders. Root folder names are globally
//     unique (enforced by a partial unique index on name_ci where
//     is_root is true). Sibling names below the root are NOT unique.
//   - IsRoot is derived from ParentID at write time; it exists so the
//     root-name uniqueness constraint can be expressed as a partial
//     index (Mongo cannot filter a partial index on a nil field).
type Folder struct {
	ID       primitive.ObjectID  `bson:"_id" json:"id"`
	Name     string              `bson:"name" json:"name"`
	NameCI   string              `bson:"name_ci" json:"-"`
	OwnerID  primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	ParentID *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	IsRoot   bool                `bson:"is_root" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
