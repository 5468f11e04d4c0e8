// Package service holds the takaful business rules shared by every entry
// point: the status machine, family linking, the delete guard and
// committee-president scoping.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/queue"
	"github.com/hama-community/welfare/internal/repository"
)

var (
	ErrInvalidTransition    = errors.New("status transition not allowed")
	ErrReasonRequired       = errors.New("cancel_reason is required to cancel a benefit")
	ErrReasonInactive       = errors.New("cancel reason is unknown or inactive")
	ErrProviderNotFound     = errors.New("provider not found")
	ErrProviderNotEligible  = errors.New("provider is inactive or not part of the solidarity program")
	ErrFamilyNotFound       = errors.New("family not found")
	ErrNeighborhoodMismatch = errors.New("family and provider are in different neighborhoods")
	ErrCancelledRecord      = errors.New("cancelled benefits cannot be modified")
	ErrNotDeletable         = errors.New("only open benefits without a linked family can be deleted")
	ErrOutOfScope           = errors.New("benefit is outside your neighborhood")
	ErrNothingToUpdate      = errors.New("nothing to update")
	ErrInvalidPeriod        = errors.New("month and year must be given together")
)

// Actor is the authenticated caller.  NeighborhoodID is set for committee
// presidents, who only see providers in their own neighborhood.
type Actor struct {
	UserID         string
	Role           string
	NeighborhoodID string
}

// Scoped reports whether the actor is restricted to one neighborhood.
func (a Actor) Scoped() bool {
	return a.Role == model.RoleCommitteePresident && a.NeighborhoodID != ""
}

type BenefitStore interface {
	Create(ctx context.Context, b *model.TakafulBenefit) error
	GetByID(ctx context.Context, id string) (*model.TakafulBenefit, error)
	List(ctx context.Context, f repository.BenefitFilter) ([]model.TakafulBenefit, error)
	Stats(ctx context.Context, t model.ProviderType, providerID string) (model.BenefitStats, error)
	UpdateStatus(ctx context.Context, u repository.StatusUpdate) error
	UpdateDetails(ctx context.Context, u repository.DetailsUpdate) error
	DeleteUnlinkedOpen(ctx context.Context, id string) error
}

type ProviderLookup interface {
	GetByID(ctx context.Context, t model.ProviderType, id string) (*model.Provider, error)
}

type FamilyLookup interface {
	GetByID(ctx context.Context, id string) (*model.Family, error)
}

type ReasonLookup interface {
	GetByID(ctx context.Context, id string) (*model.CancelReason, error)
}

// EventPublisher delivers benefit events.  Failures never fail a request.
type EventPublisher interface {
	PublishBenefitEvent(ctx context.Context, ev queue.BenefitEvent) error
}

// TakafulService implements benefit operations on top of the stores.
type TakafulService struct {
	benefits  BenefitStore
	providers ProviderLookup
	families  FamilyLookup
	reasons   ReasonLookup
	events    EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

func NewTakafulService(b BenefitStore, p ProviderLookup, f FamilyLookup, r ReasonLookup, ev EventPublisher, log *zap.Logger) *TakafulService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TakafulService{
		benefits:  b,
		providers: p,
		families:  f,
		reasons:   r,
		events:    ev,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput is the payload of a new benefit.
type CreateInput struct {
	ProviderType       model.ProviderType
	ProviderID         string
	FamilyID           *string
	BenefitDate        string
	BenefitType        model.BenefitType
	DiscountPercentage *float64
	OriginalAmount     *float64
	Notes              string
}

// Create registers a benefit in status open.  Amounts are derived from the
// original amount; the benefit date defaults to today.
func (s *TakafulService) Create(ctx context.Context, actor Actor, in CreateInput) (*model.TakafulBenefit, error) {
	if !in.ProviderType.Valid() {
		return nil, model.ErrInvalidProviderType
	}
	if err := model.ValidateDiscount(in.BenefitType, in.DiscountPercentage); err != nil {
		return nil, err
	}
	date := strings.TrimSpace(in.BenefitDate)
	if date == "" {
		date = s.now().Format(model.DateLayout)
	}
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return nil, model.ErrInvalidDate
	}

	provider, err := s.eligibleProvider(ctx, in.ProviderType, in.ProviderID)
	if err != nil {
		return nil, err
	}
	if actor.Scoped() && !sameNeighborhood(provider.NeighborhoodID, actor.NeighborhoodID) {
		return nil, ErrOutOfScope
	}

	b := &model.TakafulBenefit{
		ProviderType:       in.ProviderType,
		ProviderID:         in.ProviderID,
		BenefitDate:        date,
		BenefitType:        in.BenefitType,
		DiscountPercentage: in.DiscountPercentage,
		OriginalAmount:     in.OriginalAmount,
		Notes:              strings.TrimSpace(in.Notes),
		Status:             model.StatusOpen,
		CreatedBy:          &actor.UserID,
	}
	if in.FamilyID != nil && *in.FamilyID != "" {
		fam, err := s.matchingFamily(ctx, provider, *in.FamilyID)
		if err != nil {
			return nil, err
		}
		b.FamilyID, b.FamilyNumber = &fam.ID, &fam.FamilyNumber
	}
	b.ComputeAmounts()
	if err := b.Validate(); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		b.ID = uuid.NewString()
		b.BenefitCode = benefitCode(day, b.ID)
		err = s.benefits.Create(ctx, b)
		if !errors.Is(err, repository.ErrDuplicate) || attempt == 2 {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventCreated, actor, b, nil)
	return b, nil
}

// benefitCode formats TKF-YYYYMM-XXXXXX from the benefit month and id.
func benefitCode(day time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("TKF-%s-%s", day.Format("200601"), suffix)
}

// ListQuery filters the committee list.  Month and Year are both zero for
// no date restriction.  ProviderType "" or "all" means every type.
type ListQuery struct {
	Month        int
	Year         int
	ProviderType string
}

func (q ListQuery) filter() (repository.BenefitFilter, error) {
	var f repository.BenefitFilter
	switch {
	case q.Month == 0 && q.Year == 0:
	case q.Month == 0 || q.Year == 0:
		return f, ErrInvalidPeriod
	default:
		from, to, err := model.MonthRange(q.Year, q.Month)
		if err != nil {
			return f, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
		}
		f.From, f.To = from, to
	}
	if pt := strings.TrimSpace(q.ProviderType); pt != "" && pt != "all" {
		t := model.ProviderType(pt)
		if !t.Valid() {
			return f, model.ErrInvalidProviderType
		}
		f.ProviderType = t
	}
	return f, nil
}

// List returns benefits for the committee dashboard.
func (s *TakafulService) List(ctx context.Context, actor Actor, q ListQuery) ([]model.TakafulBenefit, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	if actor.Scoped() {
		f.NeighborhoodID = actor.NeighborhoodID
	}
	return s.benefits.List(ctx, f)
}

// ListByProvider returns one provider's benefits for a month, defaulting to
// the current month.
func (s *TakafulService) ListByProvider(ctx context.Context, t model.ProviderType, providerID string, month, year int) ([]model.TakafulBenefit, error) {
	if !t.Valid() {
		return nil, model.ErrInvalidProviderType
	}
	if month == 0 && year == 0 {
		now := s.now()
		month, year = int(now.Month()), now.Year()
	}
	f, err := ListQuery{Month: month, Year: year}.filter()
	if err != nil {
		return nil, err
	}
	f.ProviderType, f.ProviderID = t, providerID
	return s.benefits.List(ctx, f)
}

// Stats counts a provider's non-cancelled benefits.
func (s *TakafulService) Stats(ctx context.Context, t model.ProviderType, providerID string) (model.BenefitStats, error) {
	if !t.Valid() {
		return model.BenefitStats{}, model.ErrInvalidProviderType
	}
	return s.benefits.Stats(ctx, t, providerID)
}

// Get fetches one benefit the actor may see.
func (s *TakafulService) Get(ctx context.Context, actor Actor, id string) (*model.TakafulBenefit, error) {
	b, _, err := s.load(ctx, actor, id)
	return b, err
}

// StatusInput is the body of a status change.
type StatusInput struct {
	Status       model.BenefitStatus
	StatusNote   *string
	CancelReason *string
}

// UpdateStatus applies one transition of the benefit status machine.  The
// write is conditional on the status read here, so a concurrent change
// surfaces as repository.ErrConflict.
func (s *TakafulService) UpdateStatus(ctx context.Context, actor Actor, id string, in StatusInput) (*model.TakafulBenefit, error) {
	if !in.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	b, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(b.Status, in.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, in.Status)
	}

	u := repository.StatusUpdate{
		ID:        b.ID,
		From:      []model.BenefitStatus{b.Status},
		To:        in.Status,
		UpdatedBy: actor.UserID,
	}
	switch in.Status {
	case model.StatusCancelled:
		reasonID := trimmed(in.CancelReason)
		if reasonID == nil {
			return nil, ErrReasonRequired
		}
		reason, err := s.reasons.GetByID(ctx, *reasonID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !reason.IsActive) {
			return nil, ErrReasonInactive
		}
		if err != nil {
			return nil, err
		}
		u.CancelReason = reasonID
	case model.StatusClosed:
		u.StatusNote = trimmed(in.StatusNote)
	}

	if err := s.benefits.UpdateStatus(ctx, u); err != nil {
		return nil, err
	}
	updated, err := s.benefits.GetByID(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventStatusChanged, actor, updated, func(ev *queue.BenefitEvent) {
		ev.FromStatus, ev.ToStatus = string(b.Status), string(in.Status)
		if u.CancelReason != nil {
			ev.CancelReason = *u.CancelReason
		}
	})
	return updated, nil
}

// UpdateInput is a partial update.  Nil fields are left unchanged.
type UpdateInput struct {
	FamilyID *string
	Notes    *string
}

// Update links a family and/or replaces the notes of a benefit.  A family
// must live in the provider's neighborhood when both have one.
func (s *TakafulService) Update(ctx context.Context, actor Actor, id string, in UpdateInput) (*model.TakafulBenefit, error) {
	familyID := trimmed(in.FamilyID)
	if familyID == nil && in.Notes == nil {
		return nil, ErrNothingToUpdate
	}
	b, provider, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	u := repository.DetailsUpdate{ID: b.ID, UpdatedBy: actor.UserID}
	if familyID != nil {
		if b.Status == model.StatusCancelled {
			return nil, ErrCancelledRecord
		}
		fam, err := s.matchingFamily(ctx, provider, *familyID)
		if err != nil {
			return nil, err
		}
		u.FamilyID, u.FamilyNumber = &fam.ID, &fam.FamilyNumber
	}
	if in.Notes != nil {
		notes := strings.TrimSpace(*in.Notes)
		u.Notes = &notes
	}
	if err := s.benefits.UpdateDetails(ctx, u); err != nil {
		return nil, err
	}

	updated, err := s.benefits.GetByID(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if familyID != nil {
		s.publish(ctx, queue.EventFamilyLinked, actor, updated, nil)
	}
	return updated, nil
}

// Delete removes an open benefit that has no family linked yet.
func (s *TakafulService) Delete(ctx context.Context, actor Actor, id string) error {
	b, _, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if !b.Deletable() {
		return ErrNotDeletable
	}
	if err := s.benefits.DeleteUnlinkedOpen(ctx, b.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrNotDeletable
		}
		return err
	}
	s.publish(ctx, queue.EventDeleted, actor, b, nil)
	return nil
}

// load fetches a benefit and its provider and applies neighborhood scoping.
// The provider is nil when it has been removed from the directory.
func (s *TakafulService) load(ctx context.Context, actor Actor, id string) (*model.TakafulBenefit, *model.Provider, error) {
	b, err := s.benefits.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	provider, err := s.providers.GetByID(ctx, b.ProviderType, b.ProviderID)
	if errors.Is(err, repository.ErrNotFound) {
		provider, err = nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if actor.Scoped() && (provider == nil || !sameNeighborhood(provider.NeighborhoodID, actor.NeighborhoodID)) {
		return nil, nil, ErrOutOfScope
	}
	return b, provider, nil
}

func (s *TakafulService) eligibleProvider(ctx context.Context, t model.ProviderType, id string) (*model.Provider, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrProviderNotFound
	}
	p, err := s.providers.GetByID(ctx, t, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive || !p.ParticipatesInSolidarity {
		return nil, ErrProviderNotEligible
	}
	return p, nil
}

func (s *TakafulService) matchingFamily(ctx context.Context, provider *model.Provider, familyID string) (*model.Family, error) {
	fam, err := s.families.GetByID(ctx, familyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrFamilyNotFound
	}
	if err != nil {
		return nil, err
	}
	if provider != nil && provider.NeighborhoodID != nil && fam.NeighborhoodID != nil &&
		*provider.NeighborhoodID != *fam.NeighborhoodID {
		return nil, ErrNeighborhoodMismatch
	}
	return fam, nil
}

func (s *TakafulService) publish(ctx context.Context, kind string, actor Actor, b *model.TakafulBenefit, with func(*queue.BenefitEvent)) {
	if s.events == nil {
		return
	}
	ev := queue.BenefitEvent{
		Kind:         kind,
		BenefitID:    b.ID,
		BenefitCode:  b.BenefitCode,
		ProviderType: string(b.ProviderType),
		ProviderID:   b.ProviderID,
		ActorID:      actor.UserID,
		OccurredAt:   s.now().Format(time.RFC3339),
	}
	if b.FamilyID != nil {
		ev.FamilyID = *b.FamilyID
	}
	if with != nil {
		with(&ev)
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.PublishBenefitEvent(pctx, ev); err != nil {
		s.log.Warn("publish benefit event failed",
			zap.String("kind", kind), zap.String("benefit_id", b.ID), zap.Error(err))
	}
}

func sameNeighborhood(n *string, want string) bool { return n != nil && *n == want }

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
