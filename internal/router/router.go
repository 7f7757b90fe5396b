package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/token"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the authentication endpoints.  Unauthenticated
// operations live under /v1/auth behind the rate limiter; protected
// endpoints live under /v1 behind the access guard.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, codec *token.Codec, users auth.UserStore, sweeps *auth.Dispatcher, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// External identity sign-in: receives an already-verified identity;
	// the provider callback dance happens upstream of this service.
	g.POST("/external", a.External)
	// Refresh returns a new access token only; the refresh token is not
	// rotated and stays valid until logout or sweep.
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body so a session can be
	// ended even after its access token expired.
	g.POST("/logout", a.Logout)

	authed := e.Group("/v1")
	authed.Use(middleware.Authenticate(codec, users, sweeps))
	authed.GET("/me", a.Me)
	authed.POST("/logout-all", a.LogoutAll)
}

// RegisterAdmin wires the admin management endpoints behind the access
// guard plus the admin role gate.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, codec *token.Codec, users auth.UserStore, sweeps *auth.Dispatcher) {
	g := e.Group("/v1/admin")
	g.Use(middleware.Authenticate(codec, users, sweeps))
	g.Use(middleware.RequireRole(model.RoleAdmin))
	g.GET("/users", h.ListUsers)
	g.PATCH("/users/:id/role", h.ChangeRole)
	g.DELETE("/users/:id", h.DeleteUser)
	g.GET("/logs", h.ListLogs)
}
