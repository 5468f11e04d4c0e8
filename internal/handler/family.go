package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/service"
)

type FamilyAPI interface {
	Get(ctx context.Context, id string) (*model.Family, error)
	Create(ctx context.Context, actor service.Actor, in service.FamilyInput) (*model.Family, error)
	Update(ctx context.Context, actor service.Actor, id string, in service.FamilyInput) (*model.Family, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
}

// FamilyHandler serves the family registry that benefits are linked to.
type FamilyHandler struct {
	svc FamilyAPI
	log *zap.Logger
}

func NewFamilyHandler(svc FamilyAPI, log *zap.Logger) *FamilyHandler {
	return &FamilyHandler{svc: svc, log: log}
}

type familyReq struct {
	FamilyNumber   string  `json:"family_number" validate:"required,max=30"`
	Name           string  `json:"name" validate:"required,max=150"`
	NeighborhoodID *string `json:"neighborhood_id"`
	MembersCount   int     `json:"members_count" validate:"gte=1"`
	MonthlyNeed    float64 `json:"monthly_need" validate:"gte=0"`
	Description    string  `json:"description" validate:"max=1000"`
	Status         string  `json:"status" validate:"omitempty,oneof=active sponsored"`
}

func (r familyReq) input() service.FamilyInput {
	return service.FamilyInput{
		FamilyNumber:   r.FamilyNumber,
		Name:           r.Name,
		NeighborhoodID: r.NeighborhoodID,
		MembersCount:   r.MembersCount,
		MonthlyNeed:    r.MonthlyNeed,
		Description:    r.Description,
		Status:         r.Status,
	}
}

// Get handles GET /families/:id.
func (h *FamilyHandler) Get(c echo.Context) error {
	f, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *FamilyHandler) Create(c echo.Context) error {
	var req familyReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	f, err := h.svc.Create(c.Request().Context(), actorFrom(c), req.input())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, f)
}

// Update handles PUT /families/:id.  The body replaces every editable field.
func (h *FamilyHandler) Update(c echo.Context) error {
	var req familyReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	f, err := h.svc.Update(c.Request().Context(), actorFrom(c), c.Param("id"), req.input())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *FamilyHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
