package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/config"
	"github.com/hama-community/welfare/internal/model"
	"github.com/hama-community/welfare/internal/repository"
	"github.com/hama-community/welfare/internal/utils"
)

type memUsers struct {
	byEmail map[string]model.User
	created []string
}

func (m *memUsers) Create(_ context.Context, email, fullName, password, role string, cost int) (string, error) {
	if _, ok := m.byEmail[email]; ok {
		return "", repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := "u-" + email
	m.byEmail[email] = model.User{ID: id, Email: email, FullName: fullName, PasswordHash: hash, Role: role, IsActive: true}
	m.created = append(m.created, role)
	return id, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

type memTokens struct {
	live map[string]string
}

func (m *memTokens) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	m.live[hash] = userID
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	uid, ok := m.live[hash]
	if !ok {
		return "", errors.New("revoked")
	}
	return uid, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(m.live, hash)
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID string) error {
	for h, uid := range m.live {
		if uid == userID {
			delete(m.live, h)
		}
	}
	return nil
}

func setupAuth(t *testing.T) (*echo.Echo, *memUsers, *memTokens) {
	t.Helper()
	users := &memUsers{byEmail: map[string]model.User{}}
	tokens := &memTokens{live: map[string]string{}}
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	h := NewAuthHandler(cfg, users, tokens, zap.NewNop())
	e := echo.New()
	e.POST("/api/auth/register", h.Register)
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/refresh", h.Refresh)
	return e, users, tokens
}

func TestAuth_RegisterIssuesDonorTokens(t *testing.T) {
	e, users, tokens := setupAuth(t)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"email":"Donor@Example.org","full_name":"Salma","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RoleDonor, resp.User.Role)
	assert.Equal(t, "donor@example.org", resp.User.Email)
	assert.Equal(t, []string{model.RoleDonor}, users.created)
	assert.Len(t, tokens.live, 1)

	claims, err := utils.ParseAccessToken("test-secret", resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleDonor, claims.Role)

	rec = do(e, http.MethodPost, "/api/auth/register", `{"email":"Donor@Example.org","full_name":"Salma","password":"longenough"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/api/auth/register", `{"email":"nope","full_name":"","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email must be a valid email address")
	assert.Contains(t, rec.Body.String(), "password must be at least 8 characters long")
}

func TestAuth_LoginCarriesNeighborhoodClaim(t *testing.T) {
	e, users, _ := setupAuth(t)
	hash, err := utils.HashPassword("committee-pass", 4)
	require.NoError(t, err)
	nbh := "n3"
	users.byEmail["head@n3.org"] = model.User{ID: "p1", Email: "head@n3.org", PasswordHash: hash,
		Role: model.RoleCommitteePresident, NeighborhoodID: &nbh, IsActive: true}

	rec := do(e, http.MethodPost, "/api/auth/login", `{"email":"head@n3.org","password":"committee-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := utils.ParseAccessToken("test-secret", resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "n3", claims.NeighborhoodID)

	rec = do(e, http.MethodPost, "/api/auth/login", `{"email":"head@n3.org","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	u := users.byEmail["head@n3.org"]
	u.IsActive = false
	users.byEmail["head@n3.org"] = u
	rec = do(e, http.MethodPost, "/api/auth/login", `{"email":"head@n3.org","password":"committee-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RefreshRotates(t *testing.T) {
	e, _, tokens := setupAuth(t)
	rec := do(e, http.MethodPost, "/api/auth/register", `{"email":"a@b.org","full_name":"A","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = do(e, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, tokens.live, 1)
	_, stillLive := tokens.live[utils.HashRefreshRaw(first.Refresh.Token)]
	assert.False(t, stillLive)

	rec = do(e, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubReasons struct {
	activeOnly bool
	err        error
}

func (s *stubReasons) List(_ context.Context, activeOnly bool) ([]model.CancelReason, error) {
	s.activeOnly = activeOnly
	return []model.CancelReason{{ID: "r1", Name: "غياب المستفيد", IsActive: true}}, s.err
}

func (s *stubReasons) Create(_ context.Context, name, description string) (*model.CancelReason, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.CancelReason{ID: "r2", Name: name, Description: description, IsActive: true}, nil
}

func (s *stubReasons) Update(_ context.Context, id, name, description string) (*model.CancelReason, error) {
	return &model.CancelReason{ID: id, Name: name, Description: description}, s.err
}

func (s *stubReasons) Toggle(_ context.Context, id string) (*model.CancelReason, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.CancelReason{ID: id}, nil
}

func TestCancelReasonHandler(t *testing.T) {
	stub := &stubReasons{}
	h := NewCancelReasonHandler(stub, zap.NewNop())
	e := echo.New()
	e.GET("/cancel-reasons", h.List)
	e.POST("/cancel-reasons", h.Create)
	e.PATCH("/cancel-reasons/:id/toggle-status", h.Toggle)

	rec := do(e, http.MethodGet, "/cancel-reasons?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.activeOnly)
	assert.Contains(t, rec.Body.String(), "غياب المستفيد")

	rec = do(e, http.MethodPost, "/cancel-reasons", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stub.err = repository.ErrDuplicate
	rec = do(e, http.MethodPost, "/cancel-reasons", `{"name":"مكرر"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	stub.err = repository.ErrNotFound
	rec = do(e, http.MethodPatch, "/cancel-reasons/zz/toggle-status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type pingErr struct{ err error }

func (p pingErr) PingContext(context.Context) error { return p.err }

func TestHealthAndReady(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	e.GET("/readyz", Ready(pingErr{}))
	e.GET("/readyz-down", Ready(pingErr{err: errors.New("refused")}))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/readyz-down", "").Code)
}
