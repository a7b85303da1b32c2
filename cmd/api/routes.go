package main

import (
	"log"
	"net/http"

	httphandlers "finale/internal/interfaces/http"
	"finale/internal/shared/config"
	"finale/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", httphandlers.HandleHealth)

	// Public auth routes
	mux.HandleFunc("POST /api/auth/register", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)

	mux.Handle("/api/users/me", authMiddleware(http.HandlerFunc(deps.UserHandler.HandleMe)))

	mux.Handle("POST /api/link/token", authMiddleware(http.HandlerFunc(deps.LinkHandler.HandleCreateLinkToken)))
	mux.Handle("POST /api/link/complete", authMiddleware(http.HandlerFunc(deps.LinkHandler.HandleCompleteLink)))

	mux.Handle("GET /api/accounts/", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleListAccounts)))
	mux.Handle("POST /api/accounts/refresh", authMiddleware(http.HandlerFunc(deps.AccountHandler.HandleRefresh)))

	mux.Handle("POST /api/notifications/register-device", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleRegisterDevice)))
	mux.Handle("POST /api/notifications/open/{id}", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleMarkOpened)))
	mux.Handle("GET /api/notifications/", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleListNotifications)))

	// Apply global middleware
	var handler http.Handler = mux
	handler = middleware.Tracing(handler)
	handler = middleware.Telemetry(handler)
	handler = middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(handler))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
