package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/repository"
)

var (
	ErrInvalidFamilyStatus = errors.New("family status must be active or sponsored")
	ErrFamilyInUse         = errors.New("family is linked to takaful benefits and cannot be deleted")
	ErrFamilyNumberTaken   = errors.New("family number is already registered")
)

type FamilyStore interface {
	GetByID(ctx context.Context, id string) (*model.Family, error)
	Create(ctx context.Context, f *model.Family) error
	Update(ctx context.Context, f *model.Family) error
	Delete(ctx context.Context, id string) error
}

// FamilyInput is the editable part of a family record.
type FamilyInput struct {
	FamilyNumber   string
	Name           string
	NeighborhoodID *string
	MembersCount   int
	MonthlyNeed    float64
	Description    string
	Status         string
}

// FamilyService maintains the family registry.  Committee presidents manage
// the families of their own neighborhood only.
type FamilyService struct {
	store FamilyStore
	log   *zap.Logger
}

func NewFamilyService(store FamilyStore, log *zap.Logger) *FamilyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FamilyService{store: store, log: log}
}

func (s *FamilyService) Get(ctx context.Context, id string) (*model.Family, error) {
	return s.store.GetByID(ctx, id)
}

// Create registers a family.  A president's family is placed in the
// president's neighborhood when none is given.
func (s *FamilyService) Create(ctx context.Context, actor Actor, in FamilyInput) (*model.Family, error) {
	f, err := s.build(actor, in)
	if err != nil {
		return nil, err
	}
	f.ID = uuid.NewString()
	if err := s.store.Create(ctx, f); err != nil {
		return nil, familyWriteError(err)
	}
	s.log.Info("family registered", zap.String("family_id", f.ID), zap.String("actor", actor.UserID))
	return s.store.GetByID(ctx, f.ID)
}

// Update replaces the editable fields of a family.
func (s *FamilyService) Update(ctx context.Context, actor Actor, id string, in FamilyInput) (*model.Family, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkFamilyScope(actor, current.NeighborhoodID); err != nil {
		return nil, err
	}
	f, err := s.build(actor, in)
	if err != nil {
		return nil, err
	}
	f.ID = id
	if err := s.store.Update(ctx, f); err != nil {
		return nil, familyWriteError(err)
	}
	return s.store.GetByID(ctx, id)
}

// Delete removes a family that no benefit references.
func (s *FamilyService) Delete(ctx context.Context, actor Actor, id string) error {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkFamilyScope(actor, current.NeighborhoodID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrFamilyInUse
		}
		return err
	}
	s.log.Info("family deleted", zap.String("family_id", id), zap.String("actor", actor.UserID))
	return nil
}

func (s *FamilyService) build(actor Actor, in FamilyInput) (*model.Family, error) {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = model.FamilyActive
	}
	if status != model.FamilyActive && status != model.FamilySponsored {
		return nil, ErrInvalidFamilyStatus
	}
	nbh := trimmed(in.NeighborhoodID)
	if nbh == nil && actor.Scoped() {
		own := actor.NeighborhoodID
		nbh = &own
	}
	if err := checkFamilyScope(actor, nbh); err != nil {
		return nil, err
	}
	return &model.Family{
		FamilyNumber:   strings.TrimSpace(in.FamilyNumber),
		Name:           strings.TrimSpace(in.Name),
		NeighborhoodID: nbh,
		MembersCount:   in.MembersCount,
		MonthlyNeed:    in.MonthlyNeed,
		Description:    strings.TrimSpace(in.Description),
		Status:         status,
	}, nil
}

func checkFamilyScope(actor Actor, nbh *string) error {
	if actor.Scoped() && !sameNeighborhood(nbh, actor.NeighborhoodID) {
		return ErrOutOfScope
	}
	return nil
}

func familyWriteError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrFamilyNumberTaken
	}
	return err
}
