package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/config"
	"github.com/hama-community/welfare/internal/utils"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	g := e.Group("", JWTAuth("s3cret"))
	g.GET("/me", func(c echo.Context) error {
		id, ok := CurrentIdentity(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, echo.Map{"id": id.UserID, "nbh": id.NeighborhoodID})
	})
	g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole("admin"))

	pres, err := utils.NewAccessToken("s3cret", utils.Claims{UserID: "u1", Role: "committee_president", NeighborhoodID: "n5"}, 5)
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/me", pres.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u1","nbh":"n5"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/admin", pres.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireNeighborhood(t *testing.T) {
	e := echo.New()
	e.GET("/benefits", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		JWTAuth("s3cret"), RequireNeighborhood())

	orphan, err := utils.NewAccessToken("s3cret", utils.Claims{UserID: "u2", Role: "committee_president"}, 5)
	require.NoError(t, err)
	admin, err := utils.NewAccessToken("s3cret", utils.Claims{UserID: "u3", Role: "admin"}, 5)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/benefits", orphan.Token).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/benefits", admin.Token).Code)
}

func TestRedisCache_HitAfterMiss(t *testing.T) {
	_, rdb := setupTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "test:cache", MaxBodyBytes: 1 << 20}

	calls := 0
	e := echo.New()
	e.GET("/doctors", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []string{"د. سامر"})
	}, NewRedisCache(cfg, rdb, zap.NewNop()))

	first := serve(e, http.MethodGet, "/doctors?solidarity=true", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := serve(e, http.MethodGet, "/doctors?solidarity=true", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Contains(t, second.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls)

	serve(e, http.MethodGet, "/doctors?neighborhood_id=n5", "")
	assert.Equal(t, 2, calls)
}

func TestInvalidateCache_DropsScopeOnSuccess(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "test:ref", MaxBodyBytes: 1 << 20}
	require.NoError(t, mr.Set("other:keep", "1"))

	calls := 0
	e := echo.New()
	e.GET("/families", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []string{"F-001"})
	}, NewRedisCache(cfg, rdb, zap.NewNop()))
	e.POST("/families", func(c echo.Context) error {
		return c.JSON(http.StatusCreated, echo.Map{"id": "f9"})
	}, InvalidateCache(cfg, rdb, zap.NewNop()))
	e.DELETE("/families/:id", func(c echo.Context) error {
		return c.JSON(http.StatusConflict, echo.Map{"error": "in use"})
	}, InvalidateCache(cfg, rdb, zap.NewNop()))

	serve(e, http.MethodGet, "/families", "")
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/families", "").Header().Get("X-Cache"))

	serve(e, http.MethodDelete, "/families/f1", "")
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/families", "").Header().Get("X-Cache"))

	serve(e, http.MethodPost, "/families", "")
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/families", "").Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
	assert.True(t, mr.Exists("other:keep"))
}

func TestRedisCache_SkipsErrorsAndDisabled(t *testing.T) {
	_, rdb := setupTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "test:cache"}

	calls := 0
	e := echo.New()
	e.GET("/families", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "boom"})
	}, NewRedisCache(cfg, rdb, zap.NewNop()))
	serve(e, http.MethodGet, "/families", "")
	serve(e, http.MethodGet, "/families", "")
	assert.Equal(t, 2, calls)

	e2 := echo.New()
	e2.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "x") }, NewRedisCache(config.CacheConfig{}, nil, nil))
	assert.Empty(t, serve(e2, http.MethodGet, "/x", "").Header().Get("X-Cache"))
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
	_, rdb := setupTestRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, zap.NewNop()))

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPost, "/auth/login", "").Code)
	rec := serve(e, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucket_RedisDownFailsOpen(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "test:rl"}

	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, zap.NewNop()))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/x", "").Code)
	}
}

func TestRateKey_Strategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/takaful-benefits/b1/status", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/takaful-benefits/:id/status")
	c.Set("user_id", "u1")

	assert.Equal(t, "p:ip:10.0.0.7", rateKey(config.RateLimitConfig{Prefix: "p", KeyStrategy: "ip"}, c))
	assert.Equal(t, "p:user:u1", rateKey(config.RateLimitConfig{Prefix: "p", KeyStrategy: "user"}, c))
	assert.Equal(t, "p:ip:10.0.0.7:user:u1:route:PUT /takaful-benefits/:id/status", rateKey(config.RateLimitConfig{Prefix: "p"}, c))
}
