package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/jthurman/localhive/internal/auth"
	"github.com/jthurman/localhive/internal/handlers"
	"github.com/jthurman/localhive/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	totpHandler *handlers.TOTPHandler,
	healthHandler *handlers.HealthHandler,
	sessions *auth.SessionManager,
) {
	// Coarse transport limiter for credential endpoints. The login guards
	// enforce the real failure windows; this layer only sheds floods.
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	router.Get("/health", healthHandler.Health)

	// Public routes - no session required
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/login/verify", authHandler.VerifyLogin)
	})

	router.Post("/auth/logout", authHandler.Logout)
	router.With(auth.OptionalSession(sessions)).Get("/auth/session", authHandler.Session)

	// Protected routes - valid session required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))

		r.Get("/auth/me", authHandler.Me)
		r.Put("/auth/password", authHandler.ChangePassword)

		r.Post("/auth/totp/setup", totpHandler.Setup)
		r.Post("/auth/totp/enable", totpHandler.Enable)
		r.Post("/auth/totp/disable", totpHandler.Disable)
	})
}
