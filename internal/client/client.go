// Package client talks to the welfare API on behalf of committee members.
// It holds the benefit list, the status and family-linking controllers and
// the reference data they need.  Nothing here retries: every failure is
// reported to the caller once.
package client

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/model"
)

// CredentialProvider supplies the bearer token for each request.  An empty
// token sends the request anonymously.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// FileTokenStore keeps the access token in a file readable only by the
// owner.  A missing file means no token.
type FileTokenStore struct {
	Path string
}

func (f FileTokenStore) Token(context.Context) (string, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Save replaces the stored token.
func (f FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(token+"\n"), 0o600)
}

// Clear removes the stored token.
func (f FileTokenStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Client is a thin typed wrapper over the REST API rooted at <backend>/api.
type Client struct {
	http  *resty.Client
	creds CredentialProvider
	log   *zap.Logger
}

// New returns a client for backendURL (without the /api suffix).
func New(backendURL string, creds CredentialProvider, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if creds == nil {
		creds = StaticToken("")
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(backendURL, "/") + "/api").
		SetTimeout(15 * time.Second).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &Client{http: h, creds: creds, log: log}
}

// call sends one request.  body and result may be nil; fallback is the
// message used when the server explains nothing.
func (c *Client) call(ctx context.Context, method, path string, query map[string]string, body, result any, fallback string) error {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return &Error{Kind: KindAuth, Message: msgReauth, Err: err}
	}
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Warn("api call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return transportError(err)
	}
	if resp.IsError() {
		cerr := fromResponse(resp, fallback)
		c.log.Debug("api call rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", cerr.Status),
			zap.String("kind", cerr.Kind.String()))
		return cerr
	}
	return nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	err := c.call(ctx, http.MethodPost, "/auth/login", nil,
		map[string]string{"email": email, "password": password}, &out, msgGenericFailure)
	if IsKind(err, KindAuth) {
		return "", &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: msgBadCredentials}
	}
	if err != nil {
		return "", err
	}
	return out.Access.Token, nil
}

// Filters select the working set of benefits.  ProviderType "all" or
// empty means every provider type.
type Filters struct {
	Month        int
	Year         int
	ProviderType string
}

func (f Filters) query() map[string]string {
	q := map[string]string{}
	if f.Month > 0 {
		q["month"] = strconv.Itoa(f.Month)
	}
	if f.Year > 0 {
		q["year"] = strconv.Itoa(f.Year)
	}
	if f.ProviderType != "" && f.ProviderType != "all" {
		q["provider_type"] = f.ProviderType
	}
	return q
}

// NewBenefit is the body of POST /takaful-benefits.
type NewBenefit struct {
	ProviderType       model.ProviderType `json:"provider_type"`
	ProviderID         string             `json:"provider_id"`
	FamilyID           *string            `json:"family_id"`
	BenefitDate        string             `json:"benefit_date"`
	BenefitType        model.BenefitType  `json:"benefit_type"`
	DiscountPercentage *float64           `json:"discount_percentage,omitempty"`
	OriginalAmount     *float64           `json:"original_amount,omitempty"`
	Notes              string             `json:"notes"`
}

// BenefitPatch is the body of PUT /takaful-benefits/{id}.
type BenefitPatch struct {
	FamilyID *string `json:"family_id,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// StatusUpdate is the body of PUT /takaful-benefits/{id}/status.  Both
// metadata fields are always sent; the one not matching the status is null.
type StatusUpdate struct {
	Status       model.BenefitStatus `json:"status"`
	StatusNote   *string             `json:"status_note"`
	CancelReason *string             `json:"cancel_reason"`
}

func (c *Client) ListBenefits(ctx context.Context, f Filters) ([]model.TakafulBenefit, error) {
	var out []model.TakafulBenefit
	if err := c.call(ctx, http.MethodGet, "/takaful-benefits/all", f.query(), nil, &out, msgLoadFailure); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.TakafulBenefit{}
	}
	return out, nil
}

func (c *Client) GetBenefit(ctx context.Context, id string) (*model.TakafulBenefit, error) {
	var out model.TakafulBenefit
	if err := c.call(ctx, http.MethodGet, "/takaful-benefits/"+id, nil, nil, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBenefit(ctx context.Context, in NewBenefit) (*model.TakafulBenefit, error) {
	var out model.TakafulBenefit
	if err := c.call(ctx, http.MethodPost, "/takaful-benefits", nil, in, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBenefit(ctx context.Context, id string, p BenefitPatch) (*model.TakafulBenefit, error) {
	var out model.TakafulBenefit
	if err := c.call(ctx, http.MethodPut, "/takaful-benefits/"+id, nil, p, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id string, u StatusUpdate) (*model.TakafulBenefit, error) {
	var out model.TakafulBenefit
	if err := c.call(ctx, http.MethodPut, "/takaful-benefits/"+id+"/status", nil, u, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBenefit(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/takaful-benefits/"+id, nil, nil, nil, msgGenericFailure)
}

// providerPaths maps a provider type to its directory endpoint.
var providerPaths = map[model.ProviderType]string{
	model.ProviderDoctor:     "/doctors",
	model.ProviderPharmacy:   "/pharmacies",
	model.ProviderLaboratory: "/laboratories",
}

// Providers lists one directory.  solidarityOnly keeps program participants.
func (c *Client) Providers(ctx context.Context, t model.ProviderType, solidarityOnly bool) ([]model.Provider, error) {
	path, ok := providerPaths[t]
	if !ok {
		return nil, validationError(model.ErrInvalidProviderType.Error())
	}
	q := map[string]string{}
	if solidarityOnly {
		q["solidarity"] = "true"
	}
	var out []model.Provider
	if err := c.call(ctx, http.MethodGet, path, q, nil, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Families(ctx context.Context) ([]model.Family, error) {
	var out []model.Family
	if err := c.call(ctx, http.MethodGet, "/families", nil, nil, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return out, nil
}

// NewFamily is the body of a family registration.
type NewFamily struct {
	FamilyNumber   string  `json:"family_number"`
	Name           string  `json:"name"`
	NeighborhoodID *string `json:"neighborhood_id,omitempty"`
	MembersCount   int     `json:"members_count"`
	MonthlyNeed    float64 `json:"monthly_need"`
	Description    string  `json:"description,omitempty"`
}

// CreateFamily registers a family.  Number, name and a positive member
// count are checked before anything is sent.
func (c *Client) CreateFamily(ctx context.Context, in NewFamily) (*model.Family, error) {
	in.FamilyNumber, in.Name = strings.TrimSpace(in.FamilyNumber), strings.TrimSpace(in.Name)
	if in.FamilyNumber == "" || in.Name == "" || in.MembersCount < 1 {
		return nil, validationError(msgFamilyFields)
	}
	var out model.Family
	if err := c.call(ctx, http.MethodPost, "/families", nil, in, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFamily(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/families/"+id, nil, nil, nil, msgGenericFailure)
}

func (c *Client) CancelReasons(ctx context.Context, activeOnly bool) ([]model.CancelReason, error) {
	q := map[string]string{}
	if activeOnly {
		q["active"] = "true"
	}
	var out []model.CancelReason
	if err := c.call(ctx, http.MethodGet, "/cancel-reasons", q, nil, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return out, nil
}

type reasonBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Client) CreateCancelReason(ctx context.Context, name, description string) (*model.CancelReason, error) {
	var out model.CancelReason
	err := c.call(ctx, http.MethodPost, "/cancel-reasons", nil, reasonBody{name, description}, &out, msgGenericFailure)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCancelReason(ctx context.Context, id, name, description string) (*model.CancelReason, error) {
	var out model.CancelReason
	err := c.call(ctx, http.MethodPut, "/cancel-reasons/"+id, nil, reasonBody{name, description}, &out, msgGenericFailure)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleCancelReason(ctx context.Context, id string) (*model.CancelReason, error) {
	var out model.CancelReason
	if err := c.call(ctx, http.MethodPatch, "/cancel-reasons/"+id+"/toggle-status", nil, nil, &out, msgGenericFailure); err != nil {
		return nil, err
	}
	return &out, nil
}
