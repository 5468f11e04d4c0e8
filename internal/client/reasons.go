package client

import (
	"context"
	"strings"

	"github.com/hama-community/welfare/internal/model"
)

// ReasonsAPI manages the cancel-reason catalog.
type ReasonsAPI interface {
	CancelReasons(ctx context.Context, activeOnly bool) ([]model.CancelReason, error)
	CreateCancelReason(ctx context.Context, name, description string) (*model.CancelReason, error)
	UpdateCancelReason(ctx context.Context, id, name, description string) (*model.CancelReason, error)
	ToggleCancelReason(ctx context.Context, id string) (*model.CancelReason, error)
}

// ReasonCatalog edits the cancel-reason catalog.  Names are trimmed and
// required before anything is sent.
type ReasonCatalog struct {
	api ReasonsAPI
}

func NewReasonCatalog(api ReasonsAPI) *ReasonCatalog { return &ReasonCatalog{api: api} }

func (c *ReasonCatalog) List(ctx context.Context, activeOnly bool) ([]model.CancelReason, error) {
	return c.api.CancelReasons(ctx, activeOnly)
}

func (c *ReasonCatalog) Create(ctx context.Context, name, description string) (*model.CancelReason, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError(msgReasonName)
	}
	return c.api.CreateCancelReason(ctx, name, strings.TrimSpace(description))
}

func (c *ReasonCatalog) Update(ctx context.Context, id, name, description string) (*model.CancelReason, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError(msgReasonName)
	}
	return c.api.UpdateCancelReason(ctx, id, name, strings.TrimSpace(description))
}

// Toggle flips a reason between active and inactive.
func (c *ReasonCatalog) Toggle(ctx context.Context, id string) (*model.CancelReason, error) {
	return c.api.ToggleCancelReason(ctx, id)
}
