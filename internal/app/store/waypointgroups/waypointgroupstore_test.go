package waypointgroupstore_test

import (
	"errors"
	"testing"

	waypointgroupstore "github.com/dalemusser/trailhub/internal/app/store/waypointgroups"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/trailhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create_AppendsIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := waypointgroupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author")
	activity := fixtures.CreateActivity(ctx, "Campus Tour", author.ID, nil)

	first, err := store.Create(ctx, models.WaypointGroup{
		ActivityID: activity.ID,
		Name:       "Route",
		Type:       models.GroupOrdered,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := store.Create(ctx, models.WaypointGroup{
		ActivityID: activity.ID,
		Name:       "Landmarks",
		Type:       models.GroupUnordered,
	})
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	if first.Index != 0 {
		t.Errorf("expected first group at index 0, got %d", first.Index)
	}
	if second.Index != 1 {
		t.Errorf("expected second group at index 1, got %d", second.Index)
	}
}

func TestStore_Create_IndexesPerActivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := waypointgroupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author")
	activityA := fixtures.CreateActivity(ctx, "Tour A", author.ID, nil)
	activityB := fixtures.CreateActivity(ctx, "Tour B", author.ID, nil)
	fixtures.CreateGroup(ctx, activityA.ID, "Route", models.GroupOrdered, 0)

	g, err := store.Create(ctx, models.WaypointGroup{
		ActivityID: activityB.ID,
		Name:       "Route",
		Type:       models.GroupOrdered,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.Index != 0 {
		t.Errorf("expected fresh activity to start at index 0, got %d", g.Index)
	}
}

func TestStore_Rename(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := waypointgroupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author")
	activity := fixtures.CreateActivity(ctx, "Campus Tour", author.ID, nil)
	group := fixtures.CreateGroup(ctx, activity.ID, "Route", models.GroupOrdered, 0)

	if err := store.Rename(ctx, group.ID, "Main Route"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	got, err := store.GetByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Main Route" {
		t.Errorf("expected renamed group, got %q", got.Name)
	}

	err = store.Rename(ctx, primitive.NewObjectID(), "Ghost")
	if !errors.Is(err, waypointgroupstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing group, got %v", err)
	}
}

func TestStore_ListByActivity_SortedByIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := waypointgroupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author")
	activity := fixtures.CreateActivity(ctx, "Campus Tour", author.ID, nil)
	fixtures.CreateGroup(ctx, activity.ID, "Third", models.GroupUnordered, 2)
	fixtures.CreateGroup(ctx, activity.ID, "First", models.GroupOrdered, 0)
	fixtures.CreateGroup(ctx, activity.ID, "Second", models.GroupUnordered, 1)

	groups, err := store.ListByActivity(ctx, activity.ID)
	if err != nil {
		t.Fatalf("ListByActivity failed: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if groups[i].Name != want {
			t.Errorf("position %d: expected %q, got %q", i, want, groups[i].Name)
		}
	}
}

func TestStore_DeleteByActivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := waypointgroupstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author")
	activityA := fixtures.CreateActivity(ctx, "Tour A", author.ID, nil)
	activityB := fixtures.CreateActivity(ctx, "Tour B", author.ID, nil)
	fixtures.CreateGroup(ctx, activityA.ID, "Route", models.GroupOrdered, 0)
	fixtures.CreateGroup(ctx, activityA.ID, "Landmarks", models.GroupUnordered, 1)
	fixtures.CreateGroup(ctx, activityB.ID, "Route", models.GroupOrdered, 0)

	n, err := store.DeleteByActivity(ctx, activityA.ID)
	if err != nil {
		t.Fatalf("DeleteByActivity failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 groups removed, got %d", n)
	}

	remaining, err := store.ListByActivity(ctx, activityB.ID)
	if err != nil {
		t.Fatalf("ListByActivity failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("expected activity B's group to survive, got %d", len(remaining))
	}
}
