// internal/domain/models/folderpermission.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrincipalType discriminates the subject of a folder permission.
type PrincipalType string

const (
	PrincipalUser PrincipalType = "user"
	PrincipalTeam PrincipalType = "team"
)

// PrincipalTypes is the canonical list, used by schema validators.
var PrincipalTypes = []PrincipalType{PrincipalUser, PrincipalTeam}

// Valid reports whether t is a known principal type.
func (t PrincipalType) Valid() bool {
	return t == PrincipalUser || t == PrincipalTeam
}

// Principal identifies the subject of a grant: a user or a team.
// Modeling it as a tagged value (one type, one ID) makes
// "exactly one of user/team" unrepresentable as anything else.
type Principal struct {
	Type PrincipalType      `bson:"type" json:"type"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

// UserPrincipal returns a user principal for id.
func UserPrincipal(id primitive.ObjectID) Principal {
	return Principal{Type: PrincipalUser, ID: id}
}

// TeamPrincipal returns a team principal for id.
func TeamPrincipal(id primitive.ObjectID) Principal {
	return Principal{Type: PrincipalTeam, ID: id}
}

// AccessLevel is the access granted by a folder permission.
// Write implies read everywhere access is evaluated.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// AccessLevels is the canonical list, used by schema validators.
var AccessLevels = []AccessLevel{AccessRead, AccessWrite}

// Valid reports whether a is a known access level.
func (a AccessLevel) Valid() bool {
	return a == AccessRead || a == AccessWrite
}

// FolderPermission grants a principal read or write access to a folder.
// Grants live on exactly one folder and are combined across the folder's
// ancestor chain at resolution time; they are never copied to descendants.
// At most one grant exists per (folder, principal).
type FolderPermission struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	FolderID  primitive.ObjectID `bson:"folder_id" json:"folder_id"`
	Principal Principal          `bson:"principal" json:"principal"`
	Access    AccessLevel        `bson:"access" json:"access"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FolderAccess is the effective access a user holds on a folder after
// combining ownership, staff status, and every applicable grant on the
// folder's ancestor chain.
type FolderAccess struct {
	CanRead  bool `json:"can_read"`
	CanWrite bool `json:"can_write"`
}

// FullAccess is the access owners and staff hold unconditionally.
var FullAccess = FolderAccess{CanRead: true, CanWrite: true}

// NoAccess is the access of unauthenticated or unrelated users.
var NoAccess = FolderAccess{}

// Union combines two access results; any write anywhere yields write.
func (a FolderAccess) Union(b FolderAccess) FolderAccess {
	return FolderAccess{
		CanRead:  a.CanRead || b.CanRead,
		CanWrite: a.CanWrite || b.CanWrite,
	}
}
