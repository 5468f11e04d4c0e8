package client

import (
	"context"

	"github.com/hama-community/welfare/internal/model"
)

// LinkAPI persists a family link.
type LinkAPI interface {
	UpdateBenefit(ctx context.Context, id string, p BenefitPatch) (*model.TakafulBenefit, error)
}

// FamilySource resolves provider neighborhoods and lists families.
// *Directory implements it.
type FamilySource interface {
	ProviderNeighborhood(t model.ProviderType, id string) *string
	Families() []model.Family
}

// CandidateFamilies returns the families living in neighborhoodID.  When
// the neighborhood is unknown every family is a candidate.
func CandidateFamilies(families []model.Family, neighborhoodID *string) []model.Family {
	if neighborhoodID == nil || *neighborhoodID == "" {
		return families
	}
	out := make([]model.Family, 0, len(families))
	for _, f := range families {
		if f.NeighborhoodID != nil && *f.NeighborhoodID == *neighborhoodID {
			out = append(out, f)
		}
	}
	return out
}

// LinkController attaches a family to a benefit after the fact.
type LinkController struct {
	api  LinkAPI
	dir  FamilySource
	list Refresher

	open       bool
	benefit    model.TakafulBenefit
	candidates []model.Family
	selected   string
}

func NewLinkController(api LinkAPI, dir FamilySource, list Refresher) *LinkController {
	return &LinkController{api: api, dir: dir, list: list}
}

// Open starts linking b and returns the selectable families: those in the
// provider's neighborhood, or all of them when it cannot be resolved.
func (l *LinkController) Open(b model.TakafulBenefit) ([]model.Family, error) {
	if b.Status == model.StatusCancelled {
		return nil, validationError(msgCancelledLink)
	}
	nbh := l.dir.ProviderNeighborhood(b.ProviderType, b.ProviderID)
	l.open = true
	l.benefit = b
	l.candidates = CandidateFamilies(l.dir.Families(), nbh)
	l.selected = ""
	return l.candidates, nil
}

func (l *LinkController) IsOpen() bool { return l.open }

func (l *LinkController) Candidates() []model.Family { return l.candidates }

// Select picks a family by id among the candidates.
func (l *LinkController) Select(familyID string) error {
	for _, f := range l.candidates {
		if f.ID == familyID {
			l.selected = familyID
			return nil
		}
	}
	return validationError(msgFamilyNotFound)
}

// Submit stores the selected family on the benefit.  Without a selection
// nothing is sent.
func (l *LinkController) Submit(ctx context.Context) error {
	if !l.open {
		return validationError(msgNoSelection)
	}
	if l.selected == "" {
		return validationError(msgFamilyRequired)
	}
	family := l.selected
	if _, err := l.api.UpdateBenefit(ctx, l.benefit.ID, BenefitPatch{FamilyID: &family}); err != nil {
		return err
	}
	l.Close()
	return l.list.Refetch(ctx)
}

// Close abandons the dialog.
func (l *LinkController) Close() {
	l.open = false
	l.benefit = model.TakafulBenefit{}
	l.candidates = nil
	l.selected = ""
}
