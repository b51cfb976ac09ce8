package waypoints_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/trailhub/internal/app/features/waypoints"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/trailhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type testEnv struct {
	groupRouter    chi.Router
	waypointRouter chi.Router
	db             *mongo.Database
	fixtures       *testutil.Fixtures
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := waypoints.NewHandler(db, nil, zap.NewNop())
	return &testEnv{
		groupRouter:    waypoints.GroupRoutes(h),
		waypointRouter: waypoints.Routes(h),
		db:             db,
		fixtures:       testutil.NewFixtures(t, db),
	}
}

func doJSON(router chi.Router, method, target, body string, user testutil.TestUser) *testutil.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = testutil.WithUser(req, user)
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type routeSeed struct {
	author    models.User
	activity  models.Activity
	group     models.WaypointGroup
	waypoints []models.Waypoint
}

func seedRoute(t *testing.T, env *testEnv, names ...string) routeSeed {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := env.fixtures.CreateUser(ctx, "Author")
	activity := env.fixtures.CreateActivity(ctx, "Tour", author.ID, nil)
	group := env.fixtures.CreateGroup(ctx, activity.ID, "Route", models.GroupOrdered, 0)

	seed := routeSeed{author: author, activity: activity, group: group}
	for i, name := range names {
		seed.waypoints = append(seed.waypoints,
			env.fixtures.CreateWaypoint(ctx, group.ID, name, testutil.IntPtr(i)))
	}
	return seed
}

func waypointIndices(t *testing.T, env *testEnv, groupID primitive.ObjectID) map[string]int {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := env.db.Collection("waypoints").Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		t.Fatalf("listing waypoints failed: %v", err)
	}
	var wps []models.Waypoint
	if err := cur.All(ctx, &wps); err != nil {
		t.Fatalf("decoding waypoints failed: %v", err)
	}
	out := make(map[string]int, len(wps))
	for _, wp := range wps {
		if wp.Index == nil {
			t.Fatalf("waypoint %s has no index", wp.Name)
		}
		out[wp.Name] = *wp.Index
	}
	return out
}

func TestCreateWaypoint_AppendsToRoute(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "Start")
	user := testutil.UserFor(seed.author.ID, "Author")

	target := "/" + seed.group.ID.Hex() + "/waypoints"

	rec := doJSON(env.groupRouter, "POST", target, `{"name":"Library","latitude":38.95,"longitude":-92.33}`, user)
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"index":1`)

	rec = doJSON(env.groupRouter, "POST", target, `{"name":"Nowhere","latitude":95,"longitude":0}`, user)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestMove_AdjacentSwap(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A", "B", "C")
	user := testutil.UserFor(seed.author.ID, "Author")

	rec := doJSON(env.waypointRouter, "POST", "/"+seed.waypoints[1].ID.Hex()+"/move", `{"index":2}`, user)
	rec.AssertStatus(t, http.StatusOK)

	// The swap moved the neighbor too, so the response carries the
	// whole route in its new order.
	var body struct {
		Waypoints []models.Waypoint `json:"waypoints"`
	}
	rec.DecodeJSON(t, &body)
	var names []string
	for _, wp := range body.Waypoints {
		names = append(names, wp.Name)
	}
	if len(names) != 3 || names[0] != "A" || names[1] != "C" || names[2] != "B" {
		t.Errorf("expected response order [A C B], got %v", names)
	}

	got := waypointIndices(t, env, seed.group.ID)
	want := map[string]int{"A": 0, "C": 1, "B": 2}
	for name, idx := range want {
		if got[name] != idx {
			t.Errorf("waypoint %s: expected index %d, got %d", name, idx, got[name])
		}
	}
}

func TestMove_RejectsNonAdjacent(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A", "B", "C", "D")
	user := testutil.UserFor(seed.author.ID, "Author")

	rec := doJSON(env.waypointRouter, "POST", "/"+seed.waypoints[0].ID.Hex()+"/move", `{"index":3}`, user)
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = doJSON(env.waypointRouter, "POST", "/"+seed.waypoints[0].ID.Hex()+"/move", `{"index":-1}`, user)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestMove_RejectsVacantTarget(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A", "B")
	user := testutil.UserFor(seed.author.ID, "Author")

	// One past the end of the route.
	rec := doJSON(env.waypointRouter, "POST", "/"+seed.waypoints[1].ID.Hex()+"/move", `{"index":2}`, user)
	rec.AssertStatus(t, http.StatusConflict)
}

func TestMove_RejectsUnorderedGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := env.fixtures.CreateUser(ctx, "Author")
	activity := env.fixtures.CreateActivity(ctx, "Tour", author.ID, nil)
	group := env.fixtures.CreateGroup(ctx, activity.ID, "Landmarks", models.GroupUnordered, 0)
	wp := env.fixtures.CreateWaypoint(ctx, group.ID, "Fountain", nil)

	rec := doJSON(env.waypointRouter, "POST", "/"+wp.ID.Hex()+"/move", `{"index":0}`, testutil.UserFor(author.ID, "Author"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestDelete_CompactsRoute(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A", "B", "C")
	user := testutil.UserFor(seed.author.ID, "Author")

	rec := doJSON(env.waypointRouter, "DELETE", "/"+seed.waypoints[1].ID.Hex(), "", user)
	rec.AssertStatus(t, http.StatusNoContent)

	got := waypointIndices(t, env, seed.group.ID)
	want := map[string]int{"A": 0, "C": 1}
	if len(got) != len(want) {
		t.Fatalf("expected %d waypoints, got %d", len(want), len(got))
	}
	for name, idx := range want {
		if got[name] != idx {
			t.Errorf("waypoint %s: expected index %d, got %d", name, idx, got[name])
		}
	}
}

func TestUpdate_PositionNotEditable(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A", "B")
	user := testutil.UserFor(seed.author.ID, "Author")

	rec := doJSON(env.waypointRouter, "PATCH", "/"+seed.waypoints[0].ID.Hex(), `{"name":"Trailhead"}`, user)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Trailhead")

	got := waypointIndices(t, env, seed.group.ID)
	if got["Trailhead"] != 0 {
		t.Errorf("expected edit to leave the index alone, got %d", got["Trailhead"])
	}
}

func TestWaypoints_OutsiderLooksMissing(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A")
	ctx, cancel := testutil.TestContext()
	defer cancel()
	outsider := env.fixtures.CreateUser(ctx, "Outsider")
	user := testutil.UserFor(outsider.ID, "Outsider")

	rec := doJSON(env.waypointRouter, "GET", "/"+seed.waypoints[0].ID.Hex(), "", user)
	rec.AssertStatus(t, http.StatusNotFound)

	rec = doJSON(env.groupRouter, "GET", "/"+seed.group.ID.Hex()+"/waypoints", "", user)
	rec.AssertStatus(t, http.StatusNotFound)

	rec = doJSON(env.waypointRouter, "POST", "/"+seed.waypoints[0].ID.Hex()+"/move", `{"index":0}`, user)
	rec.AssertStatus(t, http.StatusNotFound)
}

func clearDirtyFlag(t *testing.T, env *testEnv, activityID primitive.ObjectID) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := env.db.Collection("activities").UpdateByID(ctx, activityID,
		bson.M{"$set": bson.M{"unpublished_changes": false}}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}
}

func activityIsDirty(t *testing.T, env *testEnv, activityID primitive.ObjectID) bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var a models.Activity
	if err := env.db.Collection("activities").FindOne(ctx, bson.M{"_id": activityID}).Decode(&a); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	return a.UnpublishedChanges
}

func TestMove_MarksActivityDirty(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A", "B")
	user := testutil.UserFor(seed.author.ID, "Author")
	clearDirtyFlag(t, env, seed.activity.ID)

	rec := doJSON(env.waypointRouter, "POST", "/"+seed.waypoints[0].ID.Hex()+"/move", `{"index":1}`, user)
	rec.AssertStatus(t, http.StatusOK)

	if !activityIsDirty(t, env, seed.activity.ID) {
		t.Error("expected the reorder to flag the activity")
	}
}

func TestDelete_MarksActivityDirty(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A", "B")
	user := testutil.UserFor(seed.author.ID, "Author")
	clearDirtyFlag(t, env, seed.activity.ID)

	rec := doJSON(env.waypointRouter, "DELETE", "/"+seed.waypoints[1].ID.Hex(), "", user)
	rec.AssertStatus(t, http.StatusNoContent)

	if !activityIsDirty(t, env, seed.activity.ID) {
		t.Error("expected the delete to flag the activity")
	}
}

func TestRenameGroup_MarksActivityDirty(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env)
	user := testutil.UserFor(seed.author.ID, "Author")
	clearDirtyFlag(t, env, seed.activity.ID)

	rec := doJSON(env.groupRouter, "PATCH", "/"+seed.group.ID.Hex(), `{"name":"Main Route"}`, user)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Main Route")

	if !activityIsDirty(t, env, seed.activity.ID) {
		t.Error("expected group edit to flag the activity")
	}
}

func TestDeleteGroup_RemovesWaypoints(t *testing.T) {
	env := newTestEnv(t)
	seed := seedRoute(t, env, "A", "B")
	user := testutil.UserFor(seed.author.ID, "Author")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := doJSON(env.groupRouter, "DELETE", "/"+seed.group.ID.Hex(), "", user)
	rec.AssertStatus(t, http.StatusNoContent)

	n, err := env.db.Collection("waypoints").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected group's waypoints to be removed, got %d", n)
	}
}
