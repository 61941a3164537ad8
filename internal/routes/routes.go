package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/bkaraoglu/stajportal/internal/auth"
	"github.com/bkaraoglu/stajportal/internal/handlers"
	"github.com/bkaraoglu/stajportal/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	dekontHandler *handlers.DekontHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public: credential exchange, throttled per IP on top of the
	// entity lockout mechanism
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/pin-login", authHandler.PinLogin)

	// Authenticated principals
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokenManager))

		r.Post("/dekont/analyze", dekontHandler.Analyze)
		r.Post("/dekont/analyze/batch", dekontHandler.BatchAnalyze)

		// Coordinator-only security operations
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin))
			r.Get("/admin/security/status/{entityType}/{entityId}", adminHandler.SecurityStatus)
			r.Post("/admin/security/unlock", adminHandler.Unlock)
		})
	})
}
