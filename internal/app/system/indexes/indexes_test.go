package indexes_test

import (
	"testing"

	"github.com/dalemusser/trailhub/internal/app/system/indexes"
	"github.com/dalemusser/trailhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// EnsureAll should succeed on a clean database
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// First call
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}

	// Second call should also succeed (idempotent)
	err = indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesUserIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Verify user indexes exist
	cur, err := db.Collection("users").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	indexNames := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			indexNames[name] = true
		}
	}

	expectedIndexes := []string{
		"uniq_users_email",
		"idx_users_status_fullnameci_id",
	}

	for _, name := range expectedIndexes {
		if !indexNames[name] {
			t.Errorf("expected index %q to exist on users collection", name)
		}
	}
}

func TestEnsureAll_CreatesFolderIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	cur, err := db.Collection("folders").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	indexNames := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			indexNames[name] = true
		}
	}

	expectedIndexes := []string{
		"uniq_folders_root_nameci",
		"idx_folders_parent_nameci__id",
		"idx_folders_owner_nameci__id",
	}

	for _, name := range expectedIndexes {
		if !indexNames[name] {
			t.Errorf("expected index %q to exist on folders collection", name)
		}
	}
}

func TestEnsureAll_CreatesFolderPermissionIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	cur, err := db.Collection("folder_permissions").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	indexNames := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			indexNames[name] = true
		}
	}

	expectedIndexes := []string{
		"uniq_fperm_folder_principal",
		"idx_fperm_folder",
		"idx_fperm_principal_folder",
	}

	for _, name := range expectedIndexes {
		if !indexNames[name] {
			t.Errorf("expected index %q to exist on folder_permissions collection", name)
		}
	}
}

func TestEnsureAll_CreatesTeamMembershipIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	cur, err := db.Collection("team_memberships").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	indexNames := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			indexNames[name] = true
		}
	}

	expectedIndexes := []string{
		"uniq_tm_user_team",
		"idx_tm_team_role_user",
		"idx_tm_user_role_team",
	}

	for _, name := range expectedIndexes {
		if !indexNames[name] {
			t.Errorf("expected index %q to exist on team_memberships collection", name)
		}
	}
}

func TestEnsureAll_CreatesWaypointIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	cur, err := db.Collection("waypoints").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	indexNames := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			indexNames[name] = true
		}
	}

	expectedIndexes := []string{
		"uniq_waypoints_group_index",
		"idx_waypoints_group__id",
	}

	for _, name := range expectedIndexes {
		if !indexNames[name] {
			t.Errorf("expected index %q to exist on waypoints collection", name)
		}
	}
}

func TestEnsureAll_UniqueIndexEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Run EnsureAll to create indexes
	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Insert a team named "Trailblazers"
	_, err = db.Collection("teams").InsertOne(ctx, bson.M{"name": "Trailblazers", "name_ci": "trailblazers"})
	if err != nil {
		t.Fatalf("Insert team failed: %v", err)
	}

	// Try to insert another team with the same folded name - should fail
	_, err = db.Collection("teams").InsertOne(ctx, bson.M{"name": "TRAILBLAZERS", "name_ci": "trailblazers"})
	if err == nil {
		t.Error("expected duplicate key error for unique index on teams.name_ci")
	}
}

func TestEnsureAll_WaypointUniqueIndexIsPartial(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := indexes.EnsureAll(ctx, db)
	if err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Two waypoints without an index field (unordered group) must coexist
	// under the same group_id despite the unique (group_id, index) index.
	group := bson.M{"group_id": "g1"}
	if _, err := db.Collection("waypoints").InsertOne(ctx, group); err != nil {
		t.Fatalf("Insert first unordered waypoint failed: %v", err)
	}
	if _, err := db.Collection("waypoints").InsertOne(ctx, bson.M{"group_id": "g1"}); err != nil {
		t.Errorf("expected second unordered waypoint to insert, got: %v", err)
	}

	// But two waypoints with the same (group_id, index) must conflict.
	if _, err := db.Collection("waypoints").InsertOne(ctx, bson.M{"group_id": "g2", "index": 0}); err != nil {
		t.Fatalf("Insert indexed waypoint failed: %v", err)
	}
	if _, err := db.Collection("waypoints").InsertOne(ctx, bson.M{"group_id": "g2", "index": 0}); err == nil {
		t.Error("expected duplicate key error for unique index on waypoints (group_id, index)")
	}
}
