package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/ZanzyTHEbar/campus-mcp/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newMemoryLimiter(t *testing.T, config Config) (*RateLimiter, *monitoring.Metrics) {
	t.Helper()
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(nil, config, metrics)
	t.Cleanup(func() { _ = limiter.Close() })
	return limiter, metrics
}

func TestRateLimiterFallbackMode(t *testing.T) {
	limiter, metrics := newMemoryLimiter(t, DefaultConfig())
	assert.Equal(t, "memory", limiter.Backend())

	ctx := context.Background()
	r := Rate{Limit: 5, Period: time.Minute}

	for i := 0; i < 5; i++ {
		result, err := limiter.Allow(ctx, "test:user:123", r)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 4-i, result.Remaining)
	}

	result, err := limiter.Allow(ctx, "test:user:123", r)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "6th request should be blocked")
	assert.Equal(t, 0, result.Remaining)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, result.RetryAfter, 12*time.Second)

	stats := metrics.GetRateLimitStats()
	assert.Equal(t, int64(6), stats["fallback_count"])
}

func TestRateLimiterBurstMultiplier(t *testing.T) {
	config := DefaultConfig()
	config.BurstMultiplier = 2
	limiter, _ := newMemoryLimiter(t, config)

	allowed := 0
	for i := 0; i < 15; i++ {
		result, err := limiter.Allow(context.Background(), "test:burst", Rate{Limit: 5, Period: time.Minute})
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)
}

func TestRateLimiterMultipleKeys(t *testing.T) {
	limiter, _ := newMemoryLimiter(t, DefaultConfig())

	ctx := context.Background()
	r := Rate{Limit: 3, Period: time.Minute}

	for _, key := range []string{"ip:1", "ip:2", "ip:3"} {
		for i := 0; i < 3; i++ {
			result, err := limiter.Allow(ctx, key, r)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "key %s request %d should be allowed", key, i+1)
		}

		result, err := limiter.Allow(ctx, key, r)
		require.NoError(t, err)
		assert.False(t, result.Allowed, "key %s 4th request should be blocked", key)
	}
}

func TestRateLimiterInvalidRate(t *testing.T) {
	limiter, _ := newMemoryLimiter(t, DefaultConfig())

	_, err := limiter.Allow(context.Background(), "k", Rate{Limit: 0, Period: time.Minute})
	assert.Error(t, err)

	_, err = limiter.Allow(context.Background(), "k", Rate{Limit: 1})
	assert.Error(t, err)
}

func TestRateLimiterRedisFailureFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(NewRedisClientFrom(client), DefaultConfig(), metrics)
	defer limiter.Close()
	assert.Equal(t, "redis", limiter.Backend())

	result, err := limiter.Allow(context.Background(), "test:redis-down", Rate{Limit: 2, Period: time.Minute})
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	stats := metrics.GetRateLimitStats()
	assert.Equal(t, int64(1), stats["redis_errors"])
	assert.Equal(t, int64(1), stats["fallback_count"])
}

func TestRateLimiterCleanup(t *testing.T) {
	config := DefaultConfig()
	config.CleanupInterval = time.Minute
	config.MaxFallbackKeys = 5
	limiter, _ := newMemoryLimiter(t, config)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	r := PerMinute(5)
	for _, key := range []string{"a", "b", "c"} {
		_, err := limiter.Allow(ctx, key, r)
		require.NoError(t, err)
	}

	now = now.Add(2 * time.Minute)
	_, err := limiter.Allow(ctx, "d", r)
	require.NoError(t, err)

	limiter.cleanup()
	assert.Equal(t, 1, limiter.GetStats()["fallback_limiters"])

	for i := 0; i < 10; i++ {
		_, err := limiter.Allow(ctx, "burst:"+strconv.Itoa(i), r)
		require.NoError(t, err)
	}
	limiter.cleanup()
	assert.Equal(t, 0, limiter.GetStats()["fallback_limiters"], "cap exceeded resets all buckets")
}

func TestRateLimiterConcurrency(t *testing.T) {
	limiter, _ := newMemoryLimiter(t, DefaultConfig())
	r := Rate{Limit: 100, Period: time.Hour}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				result, err := limiter.Allow(context.Background(), "test:concurrent", r)
				if assert.NoError(t, err) && result.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func TestRateLimiterStats(t *testing.T) {
	limiter, _ := newMemoryLimiter(t, DefaultConfig())
	_, _ = limiter.AllowIP(context.Background(), "10.0.0.1")

	stats := limiter.GetStats()
	assert.Equal(t, "memory", stats["backend"])
	assert.False(t, stats["redis_enabled"].(bool))
	assert.Equal(t, 1, stats["fallback_limiters"])

	cfg := stats["config"].(map[string]any)
	assert.Equal(t, 120, cfg["ip_limit_per_min"])
	assert.Equal(t, 30, cfg["classify_limit_per_min"])
}

func TestNewRedisClient_Disabled(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.False(t, client.IsEnabled())
	assert.Error(t, client.HealthCheck(context.Background()))
	assert.Equal(t, map[string]any{"enabled": false}, client.PoolStats())
	assert.NoError(t, client.Close())
}

func newTestRouter(limiter *RateLimiter, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware...)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ratelimit/status", limiter.HandleRateLimitStatus())
	return r
}

func TestIPRateLimitMiddleware(t *testing.T) {
	config := DefaultConfig()
	config.IPLimitPerMin = 2
	limiter, metrics := newMemoryLimiter(t, config)
	router := newTestRouter(limiter, limiter.IPRateLimitMiddleware())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error)
	assert.Equal(t, apperrors.CategoryRateLimit, body.Category)
	assert.Equal(t, w.Header().Get("Retry-After"), body.Details["retry_after"])

	assert.Equal(t, int64(1), metrics.GetRateLimitStats()["ip_blocks"])
}

func TestEndpointRateLimitMiddleware(t *testing.T) {
	limiter, metrics := newMemoryLimiter(t, DefaultConfig())
	router := newTestRouter(limiter, limiter.EndpointRateLimitMiddleware("classify", 1))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Endpoint-Limit"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, map[string]int64{"classify": 1}, metrics.GetRateLimitStats()["endpoint_blocks"])
}

func TestHandleRateLimitStatus(t *testing.T) {
	limiter, _ := newMemoryLimiter(t, DefaultConfig())
	router := newTestRouter(limiter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratelimit/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Backend string `json:"backend"`
		Limits  map[string]struct {
			Limit int `json:"limit"`
		} `json:"limits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "memory", body.Backend)
	assert.Equal(t, 120, body.Limits["ip_per_minute"].Limit)
	assert.Equal(t, 30, body.Limits["classify_per_minute"].Limit)
}
