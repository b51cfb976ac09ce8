// internal/domain/models/teammembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipRole is the role of a user inside a team.
type MembershipRole string

const (
	RoleMember MembershipRole = "member"
	RoleAdmin  MembershipRole = "admin"
)

// Valid reports whether r is a known membership role.
func (r MembershipRole) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// TeamMembership is the authoritative join between users and teams.
// Exactly one document per (user_id, team_id); role is a scalar —
// update the document to change role.
type TeamMembership struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	TeamID primitive.ObjectID `bson:"team_id" json:"team_id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role   MembershipRole     `bson:"role" json:"role"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
