package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/apps/accounts"
	"github.com/loopflow/cadenza/internal/apps/feedback"
	"github.com/loopflow/cadenza/internal/apps/library"
	"github.com/loopflow/cadenza/internal/apps/practice"
	"github.com/loopflow/cadenza/internal/apps/routines"
	"github.com/loopflow/cadenza/internal/handlers"
	"github.com/loopflow/cadenza/internal/middleware"
	"github.com/loopflow/cadenza/internal/services"
)

// Plugins returns every feature area served by the API.
func Plugins() []apps.Plugin {
	return []apps.Plugin{
		accounts.New(),
		library.New(),
		routines.New(),
		practice.New(),
		feedback.New(),
	}
}

// Setup mounts all routes. Fiber matches in registration order, so the public
// routes are registered before the authenticated group.
func Setup(app *fiber.App, deps apps.Deps, authService *services.AuthService, plugins []apps.Plugin) {
	cfg := deps.Config
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(deps.DB)
	authenticated := middleware.Authenticated(cfg, authService)

	// Public
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Check)

	// Auth: stricter per-IP budget
	auth := app.Group("/auth", middleware.RateLimit(cfg, cfg.RateLimitAuth))
	auth.Post("/dev-login", authHandler.DevLogin)
	auth.Post("/apple", authHandler.AppleSignIn)
	auth.Get("/me", append(authenticated, authHandler.Me)...)

	// Everything below requires a resolved user
	protected := app.Group("/", append(authenticated, middleware.ReadWriteLimit(cfg))...)
	for _, p := range plugins {
		p.RegisterRoutes(protected, deps)
		slog.Info("plugin registered", "plugin", p.ID())
	}
}
