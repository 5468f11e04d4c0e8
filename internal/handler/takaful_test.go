package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/repository"
	"github.com/hama-community/welfare/internal/service"
)

type stubTakaful struct {
	err        error
	actor      service.Actor
	createIn   service.CreateInput
	listQuery  service.ListQuery
	statusID   string
	statusIn   service.StatusInput
	updateIn   service.UpdateInput
	deletedID  string
	byProvider string
}

func (s *stubTakaful) Create(_ context.Context, a service.Actor, in service.CreateInput) (*model.TakafulBenefit, error) {
	s.actor, s.createIn = a, in
	if s.err != nil {
		return nil, s.err
	}
	return &model.TakafulBenefit{ID: "b1", Status: model.StatusOpen}, nil
}

func (s *stubTakaful) List(_ context.Context, a service.Actor, q service.ListQuery) ([]model.TakafulBenefit, error) {
	s.actor, s.listQuery = a, q
	if s.err != nil {
		return nil, s.err
	}
	return []model.TakafulBenefit{}, nil
}

func (s *stubTakaful) ListByProvider(_ context.Context, t model.ProviderType, id string, month, year int) ([]model.TakafulBenefit, error) {
	s.byProvider = fmt.Sprintf("%s/%s/%d/%d", t, id, month, year)
	return []model.TakafulBenefit{}, s.err
}

func (s *stubTakaful) Stats(context.Context, model.ProviderType, string) (model.BenefitStats, error) {
	return model.BenefitStats{TotalBenefits: 4, FreeBenefits: 1, DiscountBenefits: 3}, s.err
}

func (s *stubTakaful) Get(_ context.Context, _ service.Actor, id string) (*model.TakafulBenefit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.TakafulBenefit{ID: id}, nil
}

func (s *stubTakaful) UpdateStatus(_ context.Context, _ service.Actor, id string, in service.StatusInput) (*model.TakafulBenefit, error) {
	s.statusID, s.statusIn = id, in
	if s.err != nil {
		return nil, s.err
	}
	return &model.TakafulBenefit{ID: id, Status: in.Status}, nil
}

func (s *stubTakaful) Update(_ context.Context, _ service.Actor, id string, in service.UpdateInput) (*model.TakafulBenefit, error) {
	s.updateIn = in
	if s.err != nil {
		return nil, s.err
	}
	return &model.TakafulBenefit{ID: id, FamilyID: in.FamilyID}, nil
}

func (s *stubTakaful) Delete(_ context.Context, _ service.Actor, id string) error {
	s.deletedID = id
	return s.err
}

func setupTakafulEcho(stub *stubTakaful) *echo.Echo {
	h := NewTakafulHandler(stub, zap.NewNop())
	e := echo.New()
	withActor := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "u1")
			c.Set("role", model.RoleCommitteePresident)
			c.Set("neighborhood_id", "n5")
			return next(c)
		}
	}
	e.GET("/takaful-benefits/stats/:provider_type/:provider_id", h.Stats)
	e.GET("/takaful-benefits/:provider_type/:provider_id", h.ByProvider)
	g := e.Group("/takaful-benefits", withActor)
	g.GET("/all", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PUT("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.Delete)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTakafulHandler_ListPassesFiltersAndActor(t *testing.T) {
	stub := &stubTakaful{}
	e := setupTakafulEcho(stub)

	rec := do(e, http.MethodGet, "/takaful-benefits/all?month=3&year=2025&provider_type=doctor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, service.ListQuery{Month: 3, Year: 2025, ProviderType: "doctor"}, stub.listQuery)
	assert.Equal(t, service.Actor{UserID: "u1", Role: model.RoleCommitteePresident, NeighborhoodID: "n5"}, stub.actor)

	rec = do(e, http.MethodGet, "/takaful-benefits/all?month=march", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"month must be a number"}`, rec.Body.String())
}

func TestTakafulHandler_StatusBody(t *testing.T) {
	stub := &stubTakaful{}
	e := setupTakafulEcho(stub)

	rec := do(e, http.MethodPut, "/takaful-benefits/b1/status", `{"status":"closed","status_note":"تم التسليم","cancel_reason":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b1", stub.statusID)
	assert.Equal(t, model.StatusClosed, stub.statusIn.Status)
	require.NotNil(t, stub.statusIn.StatusNote)
	assert.Equal(t, "تم التسليم", *stub.statusIn.StatusNote)
	assert.Nil(t, stub.statusIn.CancelReason)

	rec = do(e, http.MethodPut, "/takaful-benefits/b1/status", `{"status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "status must be one of")
}

func TestTakafulHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: open -> closed", service.ErrInvalidTransition), http.StatusConflict},
		{service.ErrReasonRequired, http.StatusUnprocessableEntity},
		{service.ErrNeighborhoodMismatch, http.StatusConflict},
		{service.ErrOutOfScope, http.StatusForbidden},
		{repository.ErrNotFound, http.StatusNotFound},
		{repository.ErrConflict, http.StatusConflict},
		{model.ErrInvalidDiscount, http.StatusBadRequest},
		{fmt.Errorf("driver: bad connection"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			e := setupTakafulEcho(&stubTakaful{err: tc.err})
			rec := do(e, http.MethodPut, "/takaful-benefits/b1/status", `{"status":"closed"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestTakafulHandler_InternalErrorHidesDetail(t *testing.T) {
	e := setupTakafulEcho(&stubTakaful{err: fmt.Errorf("dial tcp 10.0.0.3:3306: refused")})
	rec := do(e, http.MethodGet, "/takaful-benefits/b1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestTakafulHandler_Create(t *testing.T) {
	stub := &stubTakaful{}
	e := setupTakafulEcho(stub)

	rec := do(e, http.MethodPost, "/takaful-benefits", `{"provider_type":"pharmacy","provider_id":"p2","benefit_type":"discount","discount_percentage":30,"benefit_date":"2025-03-04"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.ProviderPharmacy, stub.createIn.ProviderType)
	require.NotNil(t, stub.createIn.DiscountPercentage)
	assert.Equal(t, 30.0, *stub.createIn.DiscountPercentage)

	rec = do(e, http.MethodPost, "/takaful-benefits", `{"provider_type":"clinic","provider_id":"p2","benefit_type":"free","benefit_date":"04/03/2025"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider_type must be one of")
	assert.Contains(t, rec.Body.String(), "benefit_date must match the format")

	rec = do(e, http.MethodPost, "/takaful-benefits", `{"provider_type":"doctor","provider_id":"p2","benefit_type":"discount","discount_percentage":150}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "discount_percentage must be less than or equal to 100")
}

func TestTakafulHandler_LinkAndDelete(t *testing.T) {
	stub := &stubTakaful{}
	e := setupTakafulEcho(stub)

	rec := do(e, http.MethodPut, "/takaful-benefits/b1", `{"family_id":"f1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.updateIn.FamilyID)
	assert.Equal(t, "f1", *stub.updateIn.FamilyID)
	assert.Nil(t, stub.updateIn.Notes)

	rec = do(e, http.MethodDelete, "/takaful-benefits/b1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "b1", stub.deletedID)
}

func TestTakafulHandler_PublicProviderRoutes(t *testing.T) {
	stub := &stubTakaful{}
	e := setupTakafulEcho(stub)

	rec := do(e, http.MethodGet, "/takaful-benefits/doctor/d7?month=2&year=2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doctor/d7/2/2025", stub.byProvider)

	rec = do(e, http.MethodGet, "/takaful-benefits/stats/doctor/d7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_benefits":4,"free_benefits":1,"discount_benefits":3}`, rec.Body.String())
}
