package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/handler"
	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/service"
	"github.com/hama-community/welfare/internal/utils"
)

const secret = "router-secret"

type okTakaful struct{ listed int }

func (s *okTakaful) Create(context.Context, service.Actor, service.CreateInput) (*model.TakafulBenefit, error) {
	return &model.TakafulBenefit{ID: "b1"}, nil
}

func (s *okTakaful) List(context.Context, service.Actor, service.ListQuery) ([]model.TakafulBenefit, error) {
	s.listed++
	return []model.TakafulBenefit{}, nil
}

func (s *okTakaful) ListByProvider(context.Context, model.ProviderType, string, int, int) ([]model.TakafulBenefit, error) {
	return []model.TakafulBenefit{}, nil
}

func (s *okTakaful) Stats(context.Context, model.ProviderType, string) (model.BenefitStats, error) {
	return model.BenefitStats{}, nil
}

func (s *okTakaful) Get(_ context.Context, _ service.Actor, id string) (*model.TakafulBenefit, error) {
	return &model.TakafulBenefit{ID: id}, nil
}

func (s *okTakaful) UpdateStatus(_ context.Context, _ service.Actor, id string, in service.StatusInput) (*model.TakafulBenefit, error) {
	return &model.TakafulBenefit{ID: id, Status: in.Status}, nil
}

func (s *okTakaful) Update(_ context.Context, _ service.Actor, id string, _ service.UpdateInput) (*model.TakafulBenefit, error) {
	return &model.TakafulBenefit{ID: id}, nil
}

func (s *okTakaful) Delete(context.Context, service.Actor, string) error { return nil }

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func token(t *testing.T, role, nbh string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, utils.Claims{UserID: "u1", Role: role, NeighborhoodID: nbh}, 5)
	require.NoError(t, err)
	return tok.Token
}

func get(e *echo.Echo, path, tok string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRegisterTakaful_Access(t *testing.T) {
	svc := &okTakaful{}
	e := echo.New()
	RegisterTakaful(e, handler.NewTakafulHandler(svc, zap.NewNop()), secret, passThrough, passThrough)

	assert.Equal(t, http.StatusOK, get(e, "/api/takaful-benefits/stats/doctor/d1", ""))
	assert.Equal(t, http.StatusOK, get(e, "/api/takaful-benefits/pharmacy/p1", ""))

	assert.Equal(t, http.StatusUnauthorized, get(e, "/api/takaful-benefits/all", ""))
	assert.Equal(t, http.StatusForbidden, get(e, "/api/takaful-benefits/all", token(t, model.RoleDonor, "")))
	assert.Equal(t, http.StatusForbidden, get(e, "/api/takaful-benefits/all", token(t, model.RoleCommitteePresident, "")))
	assert.Equal(t, http.StatusOK, get(e, "/api/takaful-benefits/all", token(t, model.RoleCommitteePresident, "n5")))
	assert.Equal(t, http.StatusOK, get(e, "/api/takaful-benefits/all", token(t, model.RoleAdmin, "")))
	assert.Equal(t, 2, svc.listed)

	assert.Equal(t, http.StatusOK, get(e, "/api/takaful-benefits/b1", token(t, model.RoleAdmin, "")))
}

func TestRegisterRoutes_HealthChecks(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, nil)
	assert.Equal(t, http.StatusOK, get(e, "/healthz", ""))
	assert.Equal(t, http.StatusNotFound, get(e, "/readyz", ""))
}

type okFamilies struct{ deleted int }

func (s *okFamilies) Get(_ context.Context, id string) (*model.Family, error) {
	return &model.Family{ID: id}, nil
}

func (s *okFamilies) Create(_ context.Context, _ service.Actor, in service.FamilyInput) (*model.Family, error) {
	return &model.Family{ID: "f9", FamilyNumber: in.FamilyNumber}, nil
}

func (s *okFamilies) Update(_ context.Context, _ service.Actor, id string, _ service.FamilyInput) (*model.Family, error) {
	return &model.Family{ID: id}, nil
}

func (s *okFamilies) Delete(context.Context, service.Actor, string) error {
	s.deleted++
	return nil
}

func TestRegisterFamilies_Access(t *testing.T) {
	svc := &okFamilies{}
	e := echo.New()
	RegisterFamilies(e, handler.NewFamilyHandler(svc, zap.NewNop()), secret, passThrough, passThrough, passThrough)

	del := func(tok string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/families/f1", nil)
		if tok != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get(e, "/api/families/f1", ""))
	assert.Equal(t, http.StatusUnauthorized, del(""))
	assert.Equal(t, http.StatusForbidden, del(token(t, model.RoleDonor, "")))
	assert.Equal(t, http.StatusForbidden, del(token(t, model.RoleCommitteePresident, "")))
	assert.Equal(t, http.StatusNoContent, del(token(t, model.RoleCommitteePresident, "n5")))
	assert.Equal(t, http.StatusNoContent, del(token(t, model.RoleAdmin, "")))
	assert.Equal(t, 2, svc.deleted)
}
