// internal/domain/models/waypointgroup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WaypointGroupType determines whether a group's waypoints are sequenced.
type WaypointGroupType string

const (
	GroupOrdered   WaypointGroupType = "ordered"
	GroupUnordered WaypointGroupType = "unordered"
	GroupGeofence  WaypointGroupType = "geofence"
)

// WaypointGroupTypes is the canonical list, used by schema validators.
var WaypointGroupTypes = []WaypointGroupType{GroupOrdered, GroupUnordered, GroupGeofence}

// Valid reports whether t is a known group type.
func (t WaypointGroupType) Valid() bool {
	return t == GroupOrdered || t == GroupUnordered || t == GroupGeofence
}

// WaypointGroup holds an activity's waypoints. An activity conventionally
// has one ordered group (the route) and one unordered group (points of
// interest), both created with the activity.
//
// Ordered groups carry the dense-index invariant: committed waypoint
// indices are always exactly {0..N-1} with no gaps or duplicates.
type WaypointGroup struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ActivityID primitive.ObjectID `bson:"activity_id" json:"activity_id"`
	Name       string             `bson:"name" json:"name"`
	Type       WaypointGroupType  `bson:"type" json:"type"`
	Index      int                `bson:"index" json:"index"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
