package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hama-community/welfare/internal/model"
)

// PageSize is the number of rows per presentational page.
const PageSize = 10

// ErrStaleResponse is returned by Fetch when a newer fetch was started
// while this one was in flight.  Its result was discarded.
var ErrStaleResponse = errors.New("client: response superseded by a newer fetch")

// BenefitsAPI is the part of the API the registry uses.
type BenefitsAPI interface {
	ListBenefits(ctx context.Context, f Filters) ([]model.TakafulBenefit, error)
	CreateBenefit(ctx context.Context, in NewBenefit) (*model.TakafulBenefit, error)
	DeleteBenefit(ctx context.Context, id string) error
}

// StatusCounts are the per-status totals of the working set.
type StatusCounts struct {
	Total      int
	Open       int
	InProgress int
	Closed     int
	Cancelled  int
}

func countByStatus(items []model.TakafulBenefit) StatusCounts {
	c := StatusCounts{Total: len(items)}
	for _, b := range items {
		switch b.Status {
		case model.StatusOpen:
			c.Open++
		case model.StatusInProgress:
			c.InProgress++
		case model.StatusClosed:
			c.Closed++
		case model.StatusCancelled:
			c.Cancelled++
		}
	}
	return c
}

// Registry holds the benefits matching the current filters.  Every fetch
// takes a sequence token; a response is applied only when its token is
// still the latest one issued.
type Registry struct {
	api BenefitsAPI

	mu      sync.Mutex
	seq     uint64
	filters Filters
	items   []model.TakafulBenefit
	counts  StatusCounts
	page    int
	reasons map[string]string
}

func NewRegistry(api BenefitsAPI) *Registry {
	return &Registry{api: api, items: []model.TakafulBenefit{}, page: 1}
}

// Fetch replaces the working set with the benefits matching f.  On failure
// the previous list is kept.  A 401 comes back as a KindAuth error.
func (r *Registry) Fetch(ctx context.Context, f Filters) error {
	r.mu.Lock()
	r.seq++
	token := r.seq
	r.mu.Unlock()

	items, err := r.api.ListBenefits(ctx, f)

	r.mu.Lock()
	defer r.mu.Unlock()
	if token != r.seq {
		return ErrStaleResponse
	}
	if err != nil {
		if IsKind(err, KindAuth) {
			return err
		}
		return &Error{Kind: KindServer, Message: msgLoadFailure, Err: err}
	}
	r.filters = f
	r.items = items
	r.counts = countByStatus(items)
	r.page = 1
	return nil
}

// Refetch repeats the last successful fetch.
func (r *Registry) Refetch(ctx context.Context) error {
	r.mu.Lock()
	f := r.filters
	r.mu.Unlock()
	return r.Fetch(ctx, f)
}

func (r *Registry) Filters() Filters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filters
}

// Items returns a copy of the working set.
func (r *Registry) Items() []model.TakafulBenefit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TakafulBenefit(nil), r.items...)
}

func (r *Registry) Counts() StatusCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

// Find returns the benefit with the given id from the working set.
func (r *Registry) Find(id string) (model.TakafulBenefit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.items {
		if b.ID == id {
			return b, true
		}
	}
	return model.TakafulBenefit{}, false
}

// ReasonLabels maps reason ids to names.
func ReasonLabels(reasons []model.CancelReason) map[string]string {
	out := make(map[string]string, len(reasons))
	for _, r := range reasons {
		out[r.ID] = r.Name
	}
	return out
}

// SetReasonLabels provides cancel-reason names for rows the server sent
// without one.
func (r *Registry) SetReasonLabels(labels map[string]string) {
	r.mu.Lock()
	r.reasons = labels
	r.mu.Unlock()
}

// Search filters the working set locally.  The query matches, case
// insensitively, the code, provider name, family number, notes, status
// label and cancel-reason label.  An empty query returns everything.
func (r *Registry) Search(query string) []model.TakafulBenefit {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.TakafulBenefit, 0, len(r.items))
	for _, b := range r.items {
		if q == "" || r.matches(b, q) {
			out = append(out, b)
		}
	}
	return out
}

func (r *Registry) matches(b model.TakafulBenefit, q string) bool {
	fields := []string{b.BenefitCode, b.ProviderName, b.Notes, b.Status.Label()}
	if b.FamilyNumber != nil {
		fields = append(fields, *b.FamilyNumber)
	}
	if b.CancelReasonName != nil {
		fields = append(fields, *b.CancelReasonName)
	} else if b.CancelReason != nil {
		fields = append(fields, r.reasons[*b.CancelReason])
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// CurrentPage is 1-based and reset to 1 by every applied fetch.
func (r *Registry) CurrentPage() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.page
}

func (r *Registry) SetPage(p int) {
	if p < 1 {
		p = 1
	}
	r.mu.Lock()
	r.page = p
	r.mu.Unlock()
}

// Page returns the current page of rows, usually the result of Search.
func (r *Registry) Page(rows []model.TakafulBenefit) []model.TakafulBenefit {
	return Paginate(rows, r.CurrentPage(), PageSize)
}

// Paginate slices rows into the given 1-based page.  Out of range pages
// are empty.
func Paginate(rows []model.TakafulBenefit, page, size int) []model.TakafulBenefit {
	if page < 1 || size < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return []model.TakafulBenefit{}
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// PageCount is the number of pages n rows take, at least 1.
func PageCount(n, size int) int {
	if n <= 0 || size < 1 {
		return 1
	}
	return (n + size - 1) / size
}

// Create validates in locally, submits it and refetches the list.
func (r *Registry) Create(ctx context.Context, in NewBenefit) (*model.TakafulBenefit, error) {
	if !in.ProviderType.Valid() {
		return nil, validationError(model.ErrInvalidProviderType.Error())
	}
	if strings.TrimSpace(in.ProviderID) == "" {
		return nil, validationError("يرجى اختيار مقدم الخدمة")
	}
	if err := model.ValidateDiscount(in.BenefitType, in.DiscountPercentage); err != nil {
		return nil, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	b, err := r.api.CreateBenefit(ctx, in)
	if err != nil {
		return nil, err
	}
	return b, r.Refetch(ctx)
}

// Delete removes b when it is still open and unlinked, then refetches.
// Other records are refused without a request.
func (r *Registry) Delete(ctx context.Context, b model.TakafulBenefit) error {
	if !b.Deletable() {
		return validationError(msgNotDeletable)
	}
	if err := r.api.DeleteBenefit(ctx, b.ID); err != nil {
		return err
	}
	return r.Refetch(ctx)
}
