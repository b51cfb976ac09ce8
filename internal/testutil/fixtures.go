package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert %s fixture: %v", coll, err)
	}
}

// CreateUser creates a test user with the given name. The email is
// derived from the name.
func (f *Fixtures) CreateUser(ctx context.Context, name string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      text.Fold(name) + "@test.com",
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateStaffUser creates a test user with staff rights.
func (f *Fixtures) CreateStaffUser(ctx context.Context, name string) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, name)
	if _, err := f.db.Collection("users").UpdateOne(ctx,
		map[string]any{"_id": u.ID},
		map[string]any{"$set": map[string]any{"is_staff": true}}); err != nil {
		f.t.Fatalf("failed to promote staff fixture: %v", err)
	}
	u.IsStaff = true
	return u
}

// CreateFolder creates a test folder. Pass nil parentID for a root
// folder.
func (f *Fixtures) CreateFolder(ctx context.Context, name string, ownerID primitive.ObjectID, parentID *primitive.ObjectID) models.Folder {
	f.t.Helper()

	now := time.Now().UTC()
	folder := models.Folder{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		OwnerID:   ownerID,
		ParentID:  parentID,
		IsRoot:    parentID == nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "folders", folder)
	return folder
}

// GrantAccess creates a direct folder permission.
func (f *Fixtures) GrantAccess(ctx context.Context, folderID primitive.ObjectID, principal models.Principal, access models.AccessLevel) models.FolderPermission {
	f.t.Helper()

	perm := models.FolderPermission{
		ID:        primitive.NewObjectID(),
		FolderID:  folderID,
		Principal: principal,
		Access:    access,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "folder_permissions", perm)
	return perm
}

// CreateTeam creates a test team.
func (f *Fixtures) CreateTeam(ctx context.Context, name string, ownerID primitive.ObjectID) models.Team {
	f.t.Helper()

	now := time.Now().UTC()
	team := models.Team{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "teams", team)
	return team
}

// AddMember enrolls a user in a team.
func (f *Fixtures) AddMember(ctx context.Context, teamID, userID primitive.ObjectID, role models.MembershipRole) models.TeamMembership {
	f.t.Helper()

	m := models.TeamMembership{
		ID:        primitive.NewObjectID(),
		TeamID:    teamID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "team_memberships", m)
	return m
}

// CreateActivity creates a test activity. Pass nil folderID for an
// unfiled activity. Default waypoint groups are NOT created; use the
// activity store when a test needs them.
func (f *Fixtures) CreateActivity(ctx context.Context, name string, authorID primitive.ObjectID, folderID *primitive.ObjectID) models.Activity {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Activity{
		ID:                 primitive.NewObjectID(),
		AuthorID:           authorID,
		Name:               name,
		NameCI:             text.Fold(name),
		Type:               models.ActivityGuidedTour,
		FolderID:           folderID,
		UnpublishedChanges: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.insert(ctx, "activities", a)
	return a
}

// CreateGroup creates a waypoint group for an activity.
func (f *Fixtures) CreateGroup(ctx context.Context, activityID primitive.ObjectID, name string, gtype models.WaypointGroupType, index int) models.WaypointGroup {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.WaypointGroup{
		ID:         primitive.NewObjectID(),
		ActivityID: activityID,
		Name:       name,
		Type:       gtype,
		Index:      index,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "waypoint_groups", g)
	return g
}

// CreateWaypoint creates a waypoint. Pass nil index for waypoints in
// unordered groups.
func (f *Fixtures) CreateWaypoint(ctx context.Context, groupID primitive.ObjectID, name string, index *int) models.Waypoint {
	f.t.Helper()

	now := time.Now().UTC()
	wp := models.Waypoint{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Index:     index,
		Name:      name,
		Latitude:  38.9517,
		Longitude: -92.3341,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "waypoints", wp)
	return wp
}

// IntPtr returns a pointer to n, for waypoint index fixtures.
func IntPtr(n int) *int {
	return &n
}
