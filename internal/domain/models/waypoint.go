// internal/domain/models/waypoint.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Waypoint is a single geolocated stop. Index is only meaningful inside
// an ordered group, where the storage layer enforces uniqueness per
// (group_id, index); waypoints in unordered and geofence groups leave
// Index nil.
type Waypoint struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	Index   *int               `bson:"index,omitempty" json:"index,omitempty"`

	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`

	Name             string `bson:"name" json:"name"`
	Description      string `bson:"description,omitempty" json:"description,omitempty"`
	DepartureCallout string `bson:"departure_callout,omitempty" json:"departure_callout,omitempty"`
	ArrivalCallout   string `bson:"arrival_callout,omitempty" json:"arrival_callout,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
