package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repairshop-session/internal/api/http/handlers"
	"github.com/spec-kit/repairshop-session/internal/auth"
	"github.com/spec-kit/repairshop-session/internal/observability"
	"github.com/spec-kit/repairshop-session/internal/permission"
)

// IdentityRouteConfig bundles dependencies for identity provider routes.
type IdentityRouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterIdentityRoutes wires the identity provider's HTTP routes.
func RegisterIdentityRoutes(app *fiber.App, cfg IdentityRouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/pin/verify", cfg.Auth.VerifyPIN)
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Get("/stores", auth.RequireEmployee(), cfg.Auth.Stores)
}

// AgentRouteConfig bundles dependencies for the session agent routes.
type AgentRouteConfig struct {
	Health  *handlers.HealthHandler
	Session *handlers.SessionHandler
	Guard   *SessionGuard
	Metrics *observability.Metrics
}

// RegisterAgentRoutes wires the session agent's local HTTP routes.
func RegisterAgentRoutes(app *fiber.App, cfg AgentRouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	sessionGroup := app.Group("/session")
	sessionGroup.Post("/login", cfg.Session.Login)
	sessionGroup.Post("/unlock", cfg.Session.Unlock)
	sessionGroup.Post("/pin", cfg.Session.Unlock)
	sessionGroup.Post("/lock", cfg.Session.Lock)
	sessionGroup.Post("/logout", cfg.Session.Logout)
	sessionGroup.Post("/activity", cfg.Session.Activity)
	sessionGroup.Post("/resume", cfg.Session.Resume)
	sessionGroup.Post("/return-target", cfg.Session.ReturnTarget)
	sessionGroup.Get("", cfg.Session.Status)
	sessionGroup.Get("/permissions", cfg.Session.Permissions)

	active := sessionGroup.Group("", cfg.Guard.RequireActive())
	active.Post("/store", cfg.Session.SelectStore)
	active.Get("/stores", cfg.Guard.RequirePermission(permission.PermViewStores), cfg.Session.Stores)
}
