// Package router registers every HTTP route of the API.  Everything except
// the health checks live under /api.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hama-community/welfare/internal/handler"
	"github.com/hama-community/welfare/internal/middleware"
)

// RegisterRoutes registers the liveness and readiness checks.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers /api/auth.  Token-issuing endpoints go through the
// rate limiter; /me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}
