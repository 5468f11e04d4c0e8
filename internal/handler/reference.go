package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/repository"
)

type ProviderLister interface {
	List(ctx context.Context, t model.ProviderType, f repository.ProviderFilter) ([]model.Provider, error)
}

type FamilyLister interface {
	List(ctx context.Context, neighborhoodID string) ([]model.Family, error)
}

type NeighborhoodLister interface {
	List(ctx context.Context, activeOnly bool) ([]model.Neighborhood, error)
}

// ReferenceHandler serves the read-only directory used to pick providers
// and families.
type ReferenceHandler struct {
	Providers     ProviderLister
	Families      FamilyLister
	Neighborhoods NeighborhoodLister
	Log           *zap.Logger
}

// ProvidersOf returns a handler listing one provider type.  Supported query
// parameters: neighborhood_id, solidarity=true, active=true.
func (h *ReferenceHandler) ProvidersOf(t model.ProviderType) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := h.Providers.List(c.Request().Context(), t, repository.ProviderFilter{
			NeighborhoodID: c.QueryParam("neighborhood_id"),
			SolidarityOnly: c.QueryParam("solidarity") == "true",
			ActiveOnly:     c.QueryParam("active") == "true",
		})
		if err != nil {
			return respondError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

// ListFamilies handles GET /families[?neighborhood_id].
func (h *ReferenceHandler) ListFamilies(c echo.Context) error {
	out, err := h.Families.List(c.Request().Context(), c.QueryParam("neighborhood_id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListNeighborhoods handles GET /neighborhoods[?active=true].
func (h *ReferenceHandler) ListNeighborhoods(c echo.Context) error {
	out, err := h.Neighborhoods.List(c.Request().Context(), c.QueryParam("active") == "true")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}
