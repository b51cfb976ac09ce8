package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/trailhub/internal/app/store/users"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/trailhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{
		FullName: "  Ada Lovelace ",
		Email:    "Ada@Example.COM",
	}, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.ID.IsZero() {
		t.Error("expected an ID to be assigned")
	}
	if u.FullName != "Ada Lovelace" {
		t.Errorf("expected trimmed name, got %q", u.FullName)
	}
	if u.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if u.Status != "active" {
		t.Errorf("expected default status active, got %q", u.Status)
	}
	if u.PasswordHash == "" || u.PasswordHash == "correct horse battery staple" {
		t.Error("expected password to be hashed")
	}
}

func TestStore_Create_RejectsDuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{FullName: "First", Email: "same@example.com"}, "pw-one"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "Second", Email: "SAME@example.com"}, "pw-two")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_VerifyPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{FullName: "Ada", Email: "ada@example.com"}, "open sesame")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	u, err := store.VerifyPassword(ctx, "ADA@example.com", "open sesame")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if u.ID != created.ID {
		t.Errorf("expected user %s, got %s", created.ID.Hex(), u.ID.Hex())
	}

	_, err = store.VerifyPassword(ctx, "ada@example.com", "wrong")
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Errorf("expected mismatched password error, got %v", err)
	}

	_, err = store.VerifyPassword(ctx, "nobody@example.com", "open sesame")
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments for unknown email, got %v", err)
	}
}

func TestStore_SetPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{FullName: "Ada", Email: "ada@example.com"}, "old password")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetPassword(ctx, u.ID, "new password"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}

	if _, err := store.VerifyPassword(ctx, "ada@example.com", "new password"); err != nil {
		t.Errorf("expected new password to verify, got %v", err)
	}
	if _, err := store.VerifyPassword(ctx, "ada@example.com", "old password"); err == nil {
		t.Error("expected old password to be rejected")
	}
}
