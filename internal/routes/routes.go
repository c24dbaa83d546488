package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tickethub/panel/internal/auth"
	"github.com/tickethub/panel/internal/handlers"
	"github.com/tickethub/panel/internal/middleware"
	"github.com/tickethub/panel/internal/models"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	botHandler *handlers.BotHandler,
	accountHandler *handlers.AccountHandler,
	settingsHandler *handlers.SettingsHandler,
	tokenManager *auth.TokenManager,
) {
	// Rate limiting config for the login endpoint
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokenManager))

		// Any authenticated operator
		r.Get("/bot/status", botHandler.Status)
		r.Get("/bot/invite", botHandler.Invite)
		r.Post("/bot/verify", botHandler.Verify)
		r.Post("/bot/control/{action}", botHandler.Control)
		r.Post("/bot/send", botHandler.SendMessage)

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)

		// Owner-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleOwner))
			r.Get("/accounts", accountHandler.List)
			r.Get("/accounts/credentials", accountHandler.ListCredentials)
			r.Get("/accounts/{id}", accountHandler.Get)
			r.Post("/accounts", accountHandler.Create)
			r.Post("/accounts/password", accountHandler.MintPassword)
			r.Delete("/accounts/{id}", accountHandler.Delete)
		})
	})
}
