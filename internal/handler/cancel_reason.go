package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/model"
)

type ReasonAPI interface {
	List(ctx context.Context, activeOnly bool) ([]model.CancelReason, error)
	Create(ctx context.Context, name, description string) (*model.CancelReason, error)
	Update(ctx context.Context, id, name, description string) (*model.CancelReason, error)
	Toggle(ctx context.Context, id string) (*model.CancelReason, error)
}

// CancelReasonHandler serves the cancellation reason catalog.
type CancelReasonHandler struct {
	svc ReasonAPI
	log *zap.Logger
}

func NewCancelReasonHandler(svc ReasonAPI, log *zap.Logger) *CancelReasonHandler {
	return &CancelReasonHandler{svc: svc, log: log}
}

type reasonReq struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
}

// List handles GET /cancel-reasons[?active=true].
func (h *CancelReasonHandler) List(c echo.Context) error {
	out, err := h.svc.List(c.Request().Context(), c.QueryParam("active") == "true")
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CancelReasonHandler) Create(c echo.Context) error {
	var req reasonReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.svc.Create(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *CancelReasonHandler) Update(c echo.Context) error {
	var req reasonReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	r, err := h.svc.Update(c.Request().Context(), c.Param("id"), req.Name, req.Description)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Toggle handles PATCH /cancel-reasons/:id/toggle-status.
func (h *CancelReasonHandler) Toggle(c echo.Context) error {
	r, err := h.svc.Toggle(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}
