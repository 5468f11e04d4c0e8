package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Scopes of the Redis-backed edge middlewares.  Each scope gets its own
// key prefix and may override the shared settings with a scoped variable,
// e.g. CACHE_TTL_REFERENCE or RATE_LIMIT_AUTH_CAPACITY.
const (
	ScopeStats     = "stats"     // public provider benefit stats
	ScopeReference = "reference" // providers, families, neighborhoods
	ScopeAuth      = "auth"      // login, register, refresh
	ScopeTakaful   = "takaful"   // benefit mutations
)

// CacheConfig configures one response cache.  Only public read endpoints
// are cached; the committee benefit list never is, so a refetch after a
// mutation always sees the write.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* for the given scope.  defTTL applies when
// neither CACHE_TTL_<SCOPE> nor CACHE_TTL is set.
func LoadCacheConfig(scope string, defTTL time.Duration) CacheConfig {
	up := strings.ToUpper(scope)
	ttl := envDur("CACHE_TTL_"+up, envDur("CACHE_TTL", defTTL))
	if ttl <= 0 {
		ttl = defTTL
	}
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true) && envBool("CACHE_"+up+"_ENABLED", true),
		Methods:      methodSet(envStr("CACHE_METHODS", "GET")),
		TTL:          ttl,
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "welfare:cache") + ":" + scope,
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// RateLimitConfig configures one Redis token bucket.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* for the given scope.  Capacity is
// taken from RATE_LIMIT_<SCOPE>_CAPACITY, then RATE_LIMIT_CAPACITY, then
// defCapacity.  The bucket TTL is never shorter than five refill intervals.
func LoadRateLimitConfig(scope string, defCapacity int) RateLimitConfig {
	up := strings.ToUpper(scope)
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_"+up+"_CAPACITY", envInt("RATE_LIMIT_CAPACITY", defCapacity)),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "welfare:rl") + ":" + scope,
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if floor := 5 * cfg.RefillInterval; cfg.TTL < floor {
		cfg.TTL = floor
	}
	return cfg
}

func methodSet(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range splitList(strings.ToUpper(s)) {
		m[p] = true
	}
	return m
}

func envStr(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil {
		return dur
	}
	return d
}
