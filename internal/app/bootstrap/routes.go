// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	activitiesfeature "github.com/dalemusser/trailhub/internal/app/features/activities"
	foldersfeature "github.com/dalemusser/trailhub/internal/app/features/folders"
	healthfeature "github.com/dalemusser/trailhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/trailhub/internal/app/features/login"
	teamsfeature "github.com/dalemusser/trailhub/internal/app/features/teams"
	waypointsfeature "github.com/dalemusser/trailhub/internal/app/features/waypoints"
	userstore "github.com/dalemusser/trailhub/internal/app/store/users"
	"github.com/dalemusser/trailhub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. TrailHub is a JSON API: the
// health and auth endpoints are public, everything else sits behind
// RequireSignedIn, and per-resource authorization happens in the
// policy layer.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fetch fresh user data on each request so staff changes and
	// disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, logger)
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	// Everything below requires a signed-in user.
	r.Group(func(r chi.Router) {
		r.Use(sessionMgr.RequireSignedIn)

		foldersHandler := foldersfeature.NewHandler(deps.MongoDatabase, logger)
		r.Mount("/folders", foldersfeature.Routes(foldersHandler))

		teamsHandler := teamsfeature.NewHandler(deps.MongoDatabase, logger)
		r.Mount("/teams", teamsfeature.Routes(teamsHandler))

		activitiesHandler := activitiesfeature.NewHandler(deps.MongoDatabase, deps.Storage, logger)
		r.Mount("/activities", activitiesfeature.Routes(activitiesHandler))

		waypointsHandler := waypointsfeature.NewHandler(deps.MongoDatabase, deps.Storage, logger)
		r.Mount("/groups", waypointsfeature.GroupRoutes(waypointsHandler))
		r.Mount("/waypoints", waypointsfeature.Routes(waypointsHandler))
	})

	return r, nil
}
