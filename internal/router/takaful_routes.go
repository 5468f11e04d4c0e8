package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hama-community/welfare/internal/handler"
	"github.com/hama-community/welfare/internal/middleware"
	"github.com/hama-community/welfare/internal/model"
)

// RegisterTakaful registers the committee-facing benefit endpoints and the
// public provider calendar and stats.  Mutations are rate limited; stats
// responses go through the response cache.
func RegisterTakaful(e *echo.Echo, t *handler.TakafulHandler, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	pub := e.Group("/api/takaful-benefits")
	pub.GET("/stats/:provider_type/:provider_id", t.Stats, cache)
	pub.GET("/:provider_type/:provider_id", t.ByProvider)

	g := e.Group(
		"/api/takaful-benefits",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleCommitteePresident),
		middleware.RequireNeighborhood(),
	)
	g.GET("/all", t.List)
	g.GET("/:id", t.Get)
	g.POST("", t.Create, limit)
	g.PUT("/:id", t.Update, limit)
	g.PUT("/:id/status", t.UpdateStatus, limit)
	g.DELETE("/:id", t.Delete, limit)
}

// RegisterCancelReasons registers the reason catalog.  Any signed-in user
// may read it; only admins change it.
func RegisterCancelReasons(e *echo.Echo, r *handler.CancelReasonHandler, jwtSecret string) {
	g := e.Group("/api/cancel-reasons", middleware.JWTAuth(jwtSecret))
	g.GET("", r.List)

	admin := middleware.RequireRole(model.RoleAdmin)
	g.POST("", r.Create, admin)
	g.PUT("/:id", r.Update, admin)
	g.PATCH("/:id/toggle-status", r.Toggle, admin)
}

// RegisterReference registers the public, cached directory endpoints.
func RegisterReference(e *echo.Echo, h *handler.ReferenceHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/api", cache)
	g.GET("/doctors", h.ProvidersOf(model.ProviderDoctor))
	g.GET("/pharmacies", h.ProvidersOf(model.ProviderPharmacy))
	g.GET("/laboratories", h.ProvidersOf(model.ProviderLaboratory))
	g.GET("/families", h.ListFamilies)
	g.GET("/neighborhoods", h.ListNeighborhoods)
}

// RegisterFamilies registers the family registry.  Lookups are public and
// cached with the rest of the directory; a successful write invalidates that
// cache.
func RegisterFamilies(e *echo.Echo, f *handler.FamilyHandler, jwtSecret string, limit, cache, invalidate echo.MiddlewareFunc) {
	e.GET("/api/families/:id", f.Get, cache)

	g := e.Group(
		"/api/families",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleCommitteePresident),
		middleware.RequireNeighborhood(),
		limit,
		invalidate,
	)
	g.POST("", f.Create)
	g.PUT("/:id", f.Update)
	g.DELETE("/:id", f.Delete)
}
