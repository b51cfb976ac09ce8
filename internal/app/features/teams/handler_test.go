package teams_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/trailhub/internal/app/features/teams"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/trailhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (chi.Router, *mongo.Database, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := teams.NewHandler(db, zap.NewNop())
	return teams.Routes(h), db, testutil.NewFixtures(t, db)
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

func TestCreate_CallerBecomesOwnerAndAdmin(t *testing.T) {
	router, _, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := fixtures.CreateUser(ctx, "Creator")
	user := testutil.UserFor(creator.ID, "Creator")

	rec := doJSON(router, "POST", "/", `{"name":"Field Authors"}`, user)
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, "Field Authors")
	rec.AssertContains(t, creator.ID.Hex())
}

func TestGet_NonMemberLooksMissing(t *testing.T) {
	router, _, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	member := fixtures.CreateUser(ctx, "Member")
	outsider := fixtures.CreateUser(ctx, "Outsider")
	team := fixtures.CreateTeam(ctx, "Authors", owner.ID)
	fixtures.AddMember(ctx, team.ID, member.ID, models.RoleMember)

	rec := doJSON(router, "GET", "/"+team.ID.Hex(), "", testutil.UserFor(outsider.ID, "Outsider"))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = doJSON(router, "GET", "/"+team.ID.Hex(), "", testutil.UserFor(member.ID, "Member"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Authors")
}

func TestRename_RequiresManagement(t *testing.T) {
	router, _, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	member := fixtures.CreateUser(ctx, "Member")
	team := fixtures.CreateTeam(ctx, "Authors", owner.ID)
	fixtures.AddMember(ctx, team.ID, member.ID, models.RoleMember)

	body := `{"name":"Writers"}`

	rec := doJSON(router, "PATCH", "/"+team.ID.Hex(), body, testutil.UserFor(member.ID, "Member"))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = doJSON(router, "PATCH", "/"+team.ID.Hex(), body, testutil.UserFor(owner.ID, "Owner"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Writers")
}

func TestMembers_AddAndPromote(t *testing.T) {
	router, _, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	recruit := fixtures.CreateUser(ctx, "Recruit")
	team := fixtures.CreateTeam(ctx, "Authors", owner.ID)
	ownerUser := testutil.UserFor(owner.ID, "Owner")

	base := "/" + team.ID.Hex() + "/members"

	rec := doJSON(router, "POST", base, `{"email":"`+recruit.Email+`"}`, ownerUser)
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, string(models.RoleMember))

	// Adding twice conflicts.
	rec = doJSON(router, "POST", base, `{"user_id":"`+recruit.ID.Hex()+`"}`, ownerUser)
	rec.AssertStatus(t, http.StatusConflict)

	rec = doJSON(router, "PATCH", base+"/"+recruit.ID.Hex(), `{"role":"admin"}`, ownerUser)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, string(models.RoleAdmin))

	// Promoted admins can manage membership themselves.
	another := fixtures.CreateUser(ctx, "Another")
	rec = doJSON(router, "POST", base, `{"user_id":"`+another.ID.Hex()+`"}`, testutil.UserFor(recruit.ID, "Recruit"))
	rec.AssertStatus(t, http.StatusCreated)
}

func TestMembers_SelfRemoval(t *testing.T) {
	router, _, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	member := fixtures.CreateUser(ctx, "Member")
	bystander := fixtures.CreateUser(ctx, "Bystander")
	team := fixtures.CreateTeam(ctx, "Authors", owner.ID)
	fixtures.AddMember(ctx, team.ID, member.ID, models.RoleMember)
	fixtures.AddMember(ctx, team.ID, bystander.ID, models.RoleMember)

	// A plain member cannot remove someone else.
	rec := doJSON(router, "DELETE", "/"+team.ID.Hex()+"/members/"+bystander.ID.Hex(), "", testutil.UserFor(member.ID, "Member"))
	rec.AssertStatus(t, http.StatusForbidden)

	// But may leave the team.
	rec = doJSON(router, "DELETE", "/"+team.ID.Hex()+"/members/"+member.ID.Hex(), "", testutil.UserFor(member.ID, "Member"))
	rec.AssertStatus(t, http.StatusNoContent)
}

func TestDelete_OwnerOnly(t *testing.T) {
	router, db, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	admin := fixtures.CreateUser(ctx, "Admin")
	team := fixtures.CreateTeam(ctx, "Authors", owner.ID)
	fixtures.AddMember(ctx, team.ID, admin.ID, models.RoleAdmin)

	// Even admin members cannot delete the team.
	rec := doJSON(router, "DELETE", "/"+team.ID.Hex(), "", testutil.UserFor(admin.ID, "Admin"))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = doJSON(router, "DELETE", "/"+team.ID.Hex(), "", testutil.UserFor(owner.ID, "Owner"))
	rec.AssertStatus(t, http.StatusNoContent)

	n, err := db.Collection("team_memberships").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected memberships to be removed with the team, got %d", n)
	}
}

func TestList_IncludesOwnedAndJoined(t *testing.T) {
	router, _, fixtures := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	other := fixtures.CreateUser(ctx, "Other")
	fixtures.CreateTeam(ctx, "Owned", owner.ID)
	joined := fixtures.CreateTeam(ctx, "Joined", other.ID)
	fixtures.AddMember(ctx, joined.ID, owner.ID, models.RoleMember)
	fixtures.CreateTeam(ctx, "Unrelated", other.ID)

	rec := doJSON(router, "GET", "/", "", testutil.UserFor(owner.ID, "Owner"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Owned")
	rec.AssertContains(t, "Joined")
	if strings.Contains(rec.Body.String(), "Unrelated") {
		t.Error("expected unrelated teams to be hidden")
	}
}
