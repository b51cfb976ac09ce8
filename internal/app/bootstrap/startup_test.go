// internal/app/bootstrap/startup_test.go
package bootstrap

import (
	"testing"

	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/trailhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestEnsureStaffUser_CreatesPlaceholder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deps := DBDeps{MongoDatabase: db}
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureStaffUser(ctx, deps, "Admin@Example.COM", zap.NewNop()); err != nil {
		t.Fatalf("ensureStaffUser failed: %v", err)
	}

	var u models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"email": "admin@example.com"}).Decode(&u); err != nil {
		t.Fatalf("expected staff user to exist: %v", err)
	}
	if !u.IsStaff {
		t.Error("expected created user to be staff")
	}
	if u.Status != "disabled" {
		t.Errorf("expected placeholder to be disabled, got %q", u.Status)
	}
	if u.PasswordHash != "" {
		t.Error("expected placeholder to have no password")
	}
}

func TestEnsureStaffUser_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deps := DBDeps{MongoDatabase: db}
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing := fixtures.CreateUser(ctx, "Regular")

	if err := ensureStaffUser(ctx, deps, existing.Email, zap.NewNop()); err != nil {
		t.Fatalf("ensureStaffUser failed: %v", err)
	}

	var u models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&u); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !u.IsStaff {
		t.Error("expected existing user to be promoted to staff")
	}
	if u.Status != "active" {
		t.Errorf("expected status to be untouched, got %q", u.Status)
	}
}

func TestEnsureStaffUser_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deps := DBDeps{MongoDatabase: db}
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := ensureStaffUser(ctx, deps, "admin@example.com", zap.NewNop()); err != nil {
			t.Fatalf("run %d: ensureStaffUser failed: %v", i+1, err)
		}
	}

	n, err := db.Collection("users").CountDocuments(ctx, bson.M{"email": "admin@example.com"})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly one staff user, got %d", n)
	}
}
