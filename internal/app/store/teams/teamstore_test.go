package teamstore_test

import (
	"errors"
	"testing"

	teamstore "github.com/dalemusser/trailhub/internal/app/store/teams"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/trailhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")

	team, err := store.Create(ctx, models.Team{Name: "  Field Authors ", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if team.ID.IsZero() {
		t.Error("expected an ID to be assigned")
	}
	if team.Name != "Field Authors" {
		t.Errorf("expected trimmed name, got %q", team.Name)
	}
	if team.NameCI == "" {
		t.Error("expected folded name to be set")
	}
}

func TestStore_Create_RejectsDuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	other := fixtures.CreateUser(ctx, "Other")

	if _, err := store.Create(ctx, models.Team{Name: "Authors", OwnerID: owner.ID}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// Name uniqueness is global and case-insensitive.
	_, err := store.Create(ctx, models.Team{Name: "AUTHORS", OwnerID: other.ID})
	if !errors.Is(err, teamstore.ErrDuplicateTeamName) {
		t.Errorf("expected ErrDuplicateTeamName, got %v", err)
	}
}

func TestStore_Rename(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	team := fixtures.CreateTeam(ctx, "Authors", owner.ID)
	fixtures.CreateTeam(ctx, "Editors", owner.ID)

	if err := store.Rename(ctx, team.ID, "Writers"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	got, err := store.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Writers" {
		t.Errorf("expected renamed team, got %q", got.Name)
	}

	err = store.Rename(ctx, team.ID, "editors")
	if !errors.Is(err, teamstore.ErrDuplicateTeamName) {
		t.Errorf("expected ErrDuplicateTeamName, got %v", err)
	}
}

func TestStore_ListByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := teamstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	teamA := fixtures.CreateTeam(ctx, "Alpha", owner.ID)
	teamB := fixtures.CreateTeam(ctx, "Beta", owner.ID)
	fixtures.CreateTeam(ctx, "Gamma", owner.ID)

	teams, err := store.ListByIDs(ctx, []primitive.ObjectID{teamA.ID, teamB.ID})
	if err != nil {
		t.Fatalf("ListByIDs failed: %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(teams))
	}
}
