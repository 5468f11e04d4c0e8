package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/service"
	"github.com/hama-community/welfare/internal/utils"
)

// TakafulAPI is the benefit service as seen by the HTTP layer.
type TakafulAPI interface {
	Create(ctx context.Context, actor service.Actor, in service.CreateInput) (*model.TakafulBenefit, error)
	List(ctx context.Context, actor service.Actor, q service.ListQuery) ([]model.TakafulBenefit, error)
	ListByProvider(ctx context.Context, t model.ProviderType, providerID string, month, year int) ([]model.TakafulBenefit, error)
	Stats(ctx context.Context, t model.ProviderType, providerID string) (model.BenefitStats, error)
	Get(ctx context.Context, actor service.Actor, id string) (*model.TakafulBenefit, error)
	UpdateStatus(ctx context.Context, actor service.Actor, id string, in service.StatusInput) (*model.TakafulBenefit, error)
	Update(ctx context.Context, actor service.Actor, id string, in service.UpdateInput) (*model.TakafulBenefit, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
}

type TakafulHandler struct {
	svc TakafulAPI
	log *zap.Logger
}

func NewTakafulHandler(svc TakafulAPI, log *zap.Logger) *TakafulHandler {
	if svc == nil {
		panic("nil service passed to NewTakafulHandler")
	}
	return &TakafulHandler{svc: svc, log: log}
}

type createBenefitReq struct {
	ProviderType       string   `json:"provider_type" validate:"required,oneof=doctor pharmacy laboratory"`
	ProviderID         string   `json:"provider_id" validate:"required"`
	FamilyID           *string  `json:"family_id"`
	BenefitDate        string   `json:"benefit_date" validate:"omitempty,datetime=2006-01-02"`
	BenefitType        string   `json:"benefit_type" validate:"required,oneof=free discount"`
	DiscountPercentage *float64 `json:"discount_percentage" validate:"omitempty,gt=0,lte=100"`
	OriginalAmount     *float64 `json:"original_amount" validate:"omitempty,gte=0"`
	Notes              string   `json:"notes" validate:"max=2000"`
}

type updateBenefitReq struct {
	FamilyID *string `json:"family_id"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

type statusReq struct {
	Status       string  `json:"status" validate:"required,oneof=open inprogress closed cancelled"`
	StatusNote   *string `json:"status_note" validate:"omitempty,max=1000"`
	CancelReason *string `json:"cancel_reason"`
}

// bindValid decodes the JSON body into dst and validates it.
func bindValid(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return &utils.ValidationError{Fields: []string{"invalid body"}}
	}
	return utils.ValidateStruct(dst)
}

// Create handles POST /takaful-benefits.
func (h *TakafulHandler) Create(c echo.Context) error {
	var req createBenefitReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.svc.Create(c.Request().Context(), actorFrom(c), service.CreateInput{
		ProviderType:       model.ProviderType(req.ProviderType),
		ProviderID:         req.ProviderID,
		FamilyID:           req.FamilyID,
		BenefitDate:        req.BenefitDate,
		BenefitType:        model.BenefitType(req.BenefitType),
		DiscountPercentage: req.DiscountPercentage,
		OriginalAmount:     req.OriginalAmount,
		Notes:              req.Notes,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// List handles GET /takaful-benefits/all?month&year&provider_type.  The
// body is a plain JSON array.
func (h *TakafulHandler) List(c echo.Context) error {
	month, err := queryInt(c, "month")
	if err != nil {
		return respondError(c, h.log, err)
	}
	year, err := queryInt(c, "year")
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.svc.List(c.Request().Context(), actorFrom(c), service.ListQuery{
		Month:        month,
		Year:         year,
		ProviderType: c.QueryParam("provider_type"),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /takaful-benefits/:id.
func (h *TakafulHandler) Get(c echo.Context) error {
	b, err := h.svc.Get(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ByProvider handles GET /takaful-benefits/:provider_type/:provider_id.
func (h *TakafulHandler) ByProvider(c echo.Context) error {
	month, err := queryInt(c, "month")
	if err != nil {
		return respondError(c, h.log, err)
	}
	year, err := queryInt(c, "year")
	if err != nil {
		return respondError(c, h.log, err)
	}
	out, err := h.svc.ListByProvider(c.Request().Context(),
		model.ProviderType(c.Param("provider_type")), c.Param("provider_id"), month, year)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Stats handles GET /takaful-benefits/stats/:provider_type/:provider_id.
func (h *TakafulHandler) Stats(c echo.Context) error {
	s, err := h.svc.Stats(c.Request().Context(), model.ProviderType(c.Param("provider_type")), c.Param("provider_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Update handles PUT /takaful-benefits/:id (family link and notes).
func (h *TakafulHandler) Update(c echo.Context) error {
	var req updateBenefitReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.svc.Update(c.Request().Context(), actorFrom(c), c.Param("id"), service.UpdateInput{
		FamilyID: req.FamilyID,
		Notes:    req.Notes,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// UpdateStatus handles PUT /takaful-benefits/:id/status.
func (h *TakafulHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.svc.UpdateStatus(c.Request().Context(), actorFrom(c), c.Param("id"), service.StatusInput{
		Status:       model.BenefitStatus(req.Status),
		StatusNote:   req.StatusNote,
		CancelReason: req.CancelReason,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /takaful-benefits/:id.
func (h *TakafulHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
