package client

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hama-community/welfare/internal/model"
)

// DirectoryAPI is the reference-data part of the API.
type DirectoryAPI interface {
	Providers(ctx context.Context, t model.ProviderType, solidarityOnly bool) ([]model.Provider, error)
	Families(ctx context.Context) ([]model.Family, error)
	CancelReasons(ctx context.Context, activeOnly bool) ([]model.CancelReason, error)
}

// Directory caches the solidarity providers, the families and the active
// cancel reasons used by the controllers.
type Directory struct {
	api DirectoryAPI

	mu        sync.RWMutex
	providers map[model.ProviderType][]model.Provider
	families  []model.Family
	reasons   []model.CancelReason
}

func NewDirectory(api DirectoryAPI) *Directory {
	return &Directory{api: api, providers: map[model.ProviderType][]model.Provider{}}
}

// Load fetches every list concurrently.  Nothing is replaced unless all
// requests succeed.
func (d *Directory) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	lists := make([][]model.Provider, len(model.AllProviderTypes))
	for i, t := range model.AllProviderTypes {
		g.Go(func() error {
			ps, err := d.api.Providers(gctx, t, true)
			lists[i] = ps
			return err
		})
	}
	var (
		families []model.Family
		reasons  []model.CancelReason
	)
	g.Go(func() error {
		var err error
		families, err = d.api.Families(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reasons, err = d.api.CancelReasons(gctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for i, t := range model.AllProviderTypes {
		d.providers[t] = lists[i]
	}
	d.families = families
	d.reasons = reasons
	return nil
}

// ProviderNeighborhood returns the neighborhood of the cached provider, or
// nil when the provider is unknown or has none.
func (d *Directory) ProviderNeighborhood(t model.ProviderType, id string) *string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.providers[t] {
		if p.ID == id {
			return p.NeighborhoodID
		}
	}
	return nil
}

func (d *Directory) Providers(t model.ProviderType) []model.Provider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.providers[t]
}

func (d *Directory) Families() []model.Family {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.families
}

func (d *Directory) Reasons() []model.CancelReason {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reasons
}
