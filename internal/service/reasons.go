package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hama-community/welfare/internal/model"
)

type ReasonStore interface {
	List(ctx context.Context, activeOnly bool) ([]model.CancelReason, error)
	GetByID(ctx context.Context, id string) (*model.CancelReason, error)
	Create(ctx context.Context, id, name, description string) (*model.CancelReason, error)
	Update(ctx context.Context, id, name, description string) (*model.CancelReason, error)
	ToggleActive(ctx context.Context, id string) (*model.CancelReason, error)
}

// ReasonService manages the cancellation reason catalog.
type ReasonService struct {
	store ReasonStore
}

func NewReasonService(store ReasonStore) *ReasonService { return &ReasonService{store: store} }

func (s *ReasonService) List(ctx context.Context, activeOnly bool) ([]model.CancelReason, error) {
	return s.store.List(ctx, activeOnly)
}

// Create adds an active reason.  Names are trimmed and must be unique.
func (s *ReasonService) Create(ctx context.Context, name, description string) (*model.CancelReason, error) {
	return s.store.Create(ctx, uuid.NewString(), strings.TrimSpace(name), strings.TrimSpace(description))
}

func (s *ReasonService) Update(ctx context.Context, id, name, description string) (*model.CancelReason, error) {
	return s.store.Update(ctx, id, strings.TrimSpace(name), strings.TrimSpace(description))
}

// Toggle flips a reason between active and inactive.  Inactive reasons
// stay attached to benefits already cancelled with them.
func (s *ReasonService) Toggle(ctx context.Context, id string) (*model.CancelReason, error) {
	return s.store.ToggleActive(ctx, id)
}
