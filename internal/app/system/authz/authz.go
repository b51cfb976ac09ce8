// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/trailhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the authenticated principal handed to the folder and team
// policies. The zero value is an anonymous visitor: not authenticated,
// not staff, nil user ID.
type Identity struct {
	UserID        primitive.ObjectID
	Name          string
	Email         string
	IsStaff       bool
	Authenticated bool
}

// Anonymous is the identity of an unauthenticated request.
var Anonymous = Identity{}

// FromRequest returns the identity for the current request. If no user
// is present in context or the user ID is malformed, it returns
// Anonymous — callers can trust that Authenticated=true means a valid
// user with a valid ObjectID. Malformed IDs fail closed.
func FromRequest(r *http.Request) Identity {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Anonymous
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return Anonymous
	}
	return Identity{
		UserID:        oid,
		Name:          u.Name,
		Email:         u.Email,
		IsStaff:       u.IsStaff,
		Authenticated: true,
	}
}

// StaffIdentity builds a staff identity for the given user ID. Mostly
// used by tests and internal jobs.
func StaffIdentity(userID primitive.ObjectID) Identity {
	return Identity{UserID: userID, IsStaff: true, Authenticated: true}
}

// UserIdentity builds a plain authenticated identity for the given
// user ID.
func UserIdentity(userID primitive.ObjectID) Identity {
	return Identity{UserID: userID, Authenticated: true}
}

// IsStaff reports whether the current request's user is a staff user.
func IsStaff(r *http.Request) bool {
	u, ok := auth.CurrentUser(r)
	return ok && u.IsStaff
}
