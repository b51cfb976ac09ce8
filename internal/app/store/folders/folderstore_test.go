package folderstore_test

import (
	"errors"
	"testing"

	folderstore "github.com/dalemusser/trailhub/internal/app/store/folders"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/trailhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create_Root(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")

	created, err := store.Create(ctx, models.Folder{
		Name:    "Campus Tours",
		OwnerID: owner.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if !created.IsRoot {
		t.Error("expected folder with no parent to be a root")
	}
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_DuplicateRootName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	other := fixtures.CreateUser(ctx, "Other")

	if _, err := store.Create(ctx, models.Folder{Name: "Campus Tours", OwnerID: owner.ID}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// Root names are unique across all owners, case-insensitively.
	_, err := store.Create(ctx, models.Folder{Name: "CAMPUS TOURS", OwnerID: other.ID})
	if !errors.Is(err, folderstore.ErrDuplicateRootName) {
		t.Errorf("expected ErrDuplicateRootName, got %v", err)
	}
}

func TestStore_Create_SiblingNamesNotUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	root := fixtures.CreateFolder(ctx, "Root", owner.ID, nil)

	if _, err := store.Create(ctx, models.Folder{Name: "Drafts", OwnerID: owner.ID, ParentID: &root.ID}); err != nil {
		t.Fatalf("first child Create failed: %v", err)
	}
	if _, err := store.Create(ctx, models.Folder{Name: "Drafts", OwnerID: owner.ID, ParentID: &root.ID}); err != nil {
		t.Errorf("expected duplicate sibling names to be allowed, got %v", err)
	}
}

func TestStore_Create_ParentNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	missing := primitive.NewObjectID()

	_, err := store.Create(ctx, models.Folder{Name: "Orphan", OwnerID: owner.ID, ParentID: &missing})
	if !errors.Is(err, folderstore.ErrParentNotFound) {
		t.Errorf("expected ErrParentNotFound, got %v", err)
	}
}

func TestStore_AncestorChain(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	root := fixtures.CreateFolder(ctx, "Root", owner.ID, nil)
	mid := fixtures.CreateFolder(ctx, "Mid", owner.ID, &root.ID)
	leaf := fixtures.CreateFolder(ctx, "Leaf", owner.ID, &mid.ID)

	chain, err := store.AncestorChain(ctx, leaf.ID)
	if err != nil {
		t.Fatalf("AncestorChain failed: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("expected chain of 3, got %d", len(chain))
	}
	if chain[0].ID != leaf.ID || chain[1].ID != mid.ID || chain[2].ID != root.ID {
		t.Error("expected chain ordered leaf to root")
	}
}

func TestStore_Move_RejectsCycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	root := fixtures.CreateFolder(ctx, "Root", owner.ID, nil)
	child := fixtures.CreateFolder(ctx, "Child", owner.ID, &root.ID)
	grandchild := fixtures.CreateFolder(ctx, "Grandchild", owner.ID, &child.ID)

	// Moving a folder under its own descendant must fail.
	if err := store.Move(ctx, root.ID, &grandchild.ID); !errors.Is(err, folderstore.ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	// Moving a folder into itself must fail too.
	if err := store.Move(ctx, child.ID, &child.ID); !errors.Is(err, folderstore.ErrCycle) {
		t.Errorf("expected ErrCycle for self-parent, got %v", err)
	}
}

func TestStore_Move_ToRootChecksName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	fixtures.CreateFolder(ctx, "Shared Name", owner.ID, nil)
	root := fixtures.CreateFolder(ctx, "Another Root", owner.ID, nil)
	child := fixtures.CreateFolder(ctx, "Shared Name", owner.ID, &root.ID)

	err := store.Move(ctx, child.ID, nil)
	if !errors.Is(err, folderstore.ErrDuplicateRootName) {
		t.Errorf("expected ErrDuplicateRootName, got %v", err)
	}
}

func TestStore_Move_Valid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	rootA := fixtures.CreateFolder(ctx, "Root A", owner.ID, nil)
	rootB := fixtures.CreateFolder(ctx, "Root B", owner.ID, nil)
	child := fixtures.CreateFolder(ctx, "Child", owner.ID, &rootA.ID)

	if err := store.Move(ctx, child.ID, &rootB.ID); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	moved, err := store.GetByID(ctx, child.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != rootB.ID {
		t.Error("expected child to be under Root B")
	}
	if moved.IsRoot {
		t.Error("expected moved child not to be a root")
	}
}

func TestStore_DescendantIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner")
	root := fixtures.CreateFolder(ctx, "Root", owner.ID, nil)
	a := fixtures.CreateFolder(ctx, "A", owner.ID, &root.ID)
	b := fixtures.CreateFolder(ctx, "B", owner.ID, &root.ID)
	deep := fixtures.CreateFolder(ctx, "Deep", owner.ID, &a.ID)
	// An unrelated tree must not appear.
	other := fixtures.CreateFolder(ctx, "Other Root", owner.ID, nil)
	fixtures.CreateFolder(ctx, "Other Child", owner.ID, &other.ID)

	ids, err := store.DescendantIDs(ctx, []primitive.ObjectID{root.ID})
	if err != nil {
		t.Fatalf("DescendantIDs failed: %v", err)
	}

	want := map[primitive.ObjectID]bool{a.ID: true, b.ID: true, deep.ID: true}
	if len(ids) != len(want) {
		t.Fatalf("expected %d descendants, got %d", len(want), len(ids))
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected descendant %s", id.Hex())
		}
	}
}

