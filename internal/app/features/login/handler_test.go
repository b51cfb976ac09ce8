package login_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/trailhub/internal/app/features/login"
	userstore "github.com/dalemusser/trailhub/internal/app/store/users"
	"github.com/dalemusser/trailhub/internal/app/system/auth"
	"github.com/dalemusser/trailhub/internal/domain/models"
	"github.com/dalemusser/trailhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*login.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return login.NewHandler(db, sm, logger), db
}

func createAccount(t *testing.T, db *mongo.Database, email, password string) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := userstore.New(db).Create(ctx, models.User{FullName: "Test User", Email: email}, password)
	if err != nil {
		t.Fatalf("creating account failed: %v", err)
	}
	return u
}

func TestLogin_Success(t *testing.T) {
	h, db := newTestHandler(t)
	u := createAccount(t, db, "ada@example.com", "open sesame")

	body := `{"email":"ADA@example.com","password":"open sesame"}`
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := testutil.NewRecorder()

	h.Login(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, u.ID.Hex())
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie to be set")
	}
}

func TestLogin_BadPassword(t *testing.T) {
	h, db := newTestHandler(t)
	createAccount(t, db, "ada@example.com", "open sesame")

	body := `{"email":"ada@example.com","password":"wrong"}`
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := testutil.NewRecorder()

	h.Login(rec, req)

	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "invalid email or password")
}

func TestLogin_UnknownEmailMatchesBadPassword(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"email":"nobody@example.com","password":"whatever"}`
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := testutil.NewRecorder()

	h.Login(rec, req)

	rec.AssertStatus(t, http.StatusUnauthorized)
	rec.AssertContains(t, "invalid email or password")
}

func TestLogin_MissingFields(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"","password":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := testutil.NewRecorder()

	h.Login(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	rec := testutil.NewRecorder()

	h.Logout(rec, req)

	rec.AssertStatus(t, http.StatusNoContent)
}

func TestMe(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.Me(rec, httptest.NewRequest("GET", "/auth/me", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)

	user := testutil.AuthorUser()
	req := testutil.NewAuthenticatedRequest("GET", "/auth/me", user)
	rec = testutil.NewRecorder()
	h.Me(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, user.Email)
}
