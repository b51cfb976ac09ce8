// internal/app/features/login/handler.go
package login

import (
	"net/http"

	userstore "github.com/dalemusser/trailhub/internal/app/store/users"
	"github.com/dalemusser/trailhub/internal/app/system/auth"
	"github.com/dalemusser/trailhub/internal/app/system/httpjson"
	"github.com/dalemusser/trailhub/internal/app/system/normalize"
	"github.com/dalemusser/trailhub/internal/app/system/ratelimit"
	"github.com/dalemusser/trailhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Log        *zap.Logger
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sm,
		Limiter:    ratelimit.NewLoginLimiter(),
		Log:        logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

// Login handles POST /auth/login. Unknown email and wrong password
// produce the identical response so the endpoint cannot be used to
// probe for accounts.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := normalize.Email(req.Email)
	if email == "" || req.Password == "" {
		httpjson.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if ok, reason := h.Limiter.Check(r, email); !ok {
		httpjson.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.Users.VerifyPassword(ctx, email, req.Password)
	if err != nil {
		// Same response for unknown email and bad password.
		httpjson.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("login: session sign-in failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not establish session")
		return
	}
	h.Limiter.ResetEmail(email)

	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))
	httpjson.Respond(w, http.StatusOK, loginResponse{
		ID:      u.ID.Hex(),
		Name:    u.FullName,
		Email:   u.Email,
		IsStaff: u.IsStaff,
	})
}

// Logout handles POST /auth/logout. Always succeeds, signed in or not.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("logout: session sign-out failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me, returning the signed-in user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "not signed in")
		return
	}
	httpjson.Respond(w, http.StatusOK, loginResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsStaff: u.IsStaff,
	})
}
