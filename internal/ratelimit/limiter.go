package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/monitoring"
	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin       int           // all routes, per client IP
	ClassifyLimitPerMin int           // classification routes, per client IP
	BurstMultiplier     int           // bucket size as a multiple of the limit
	CleanupInterval     time.Duration // idle in-memory buckets older than this are dropped
	MaxFallbackKeys     int           // hard cap on in-memory buckets
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:       120,
		ClassifyLimitPerMin: 30,
		BurstMultiplier:     1,
		CleanupInterval:     10 * time.Minute,
		MaxFallbackKeys:     10000,
	}
}

// Rate is a number of requests allowed per period
type Rate struct {
	Limit  int
	Period time.Duration
}

// PerMinute builds a per-minute Rate
func PerMinute(limit int) Rate {
	return Rate{Limit: limit, Period: time.Minute}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests through Redis when available and through
// per-key token buckets otherwise.
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*bucket
	fallbackMutex    sync.Mutex

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewRateLimiter creates a limiter. redisClient may be nil or disabled.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	defaults := DefaultConfig()
	if config.BurstMultiplier < 1 {
		config.BurstMultiplier = defaults.BurstMultiplier
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.MaxFallbackKeys <= 0 {
		config.MaxFallbackKeys = defaults.MaxFallbackKeys
	}

	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*bucket),
		now:              time.Now,
		stop:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.Client())
	}

	go rl.cleanupLoop()

	return rl
}

// Config returns the effective configuration
func (rl *RateLimiter) Config() Config {
	return rl.config
}

// Backend names the active limiter store
func (rl *RateLimiter) Backend() string {
	if rl.redisLimiter != nil {
		return "redis"
	}
	return "memory"
}

// AllowIP applies the global per-IP limit
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, "ratelimit:ip:"+ip, PerMinute(rl.config.IPLimitPerMin))
}

// AllowEndpoint applies a per-IP limit scoped to one endpoint
func (rl *RateLimiter) AllowEndpoint(ctx context.Context, endpoint, ip string, limit int) (*Result, error) {
	return rl.Allow(ctx, fmt.Sprintf("ratelimit:endpoint:%s:%s", endpoint, ip), PerMinute(limit))
}

// Allow consumes one request for key
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if r.Limit <= 0 || r.Period <= 0 {
		return nil, fmt.Errorf("invalid rate %d per %s", r.Limit, r.Period)
	}

	if rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, r)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowFallback(key, r), nil
}

func (rl *RateLimiter) burst(limit int) int {
	return limit * rl.config.BurstMultiplier
}

// allowRedis uses the GCRA implementation of redis_rate
func (rl *RateLimiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   r.Limit,
		Burst:  rl.burst(r.Limit),
		Period: r.Period,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Allowed:   res.Allowed > 0,
		Limit:     r.Limit,
		Remaining: res.Remaining,
		ResetAt:   rl.now().Add(res.ResetAfter),
	}
	if !result.Allowed {
		result.RetryAfter = res.RetryAfter
	}
	return result, nil
}

// allowFallback uses an in-memory token bucket per key
func (rl *RateLimiter) allowFallback(key string, r Rate) *Result {
	now := rl.now()
	every := rate.Limit(float64(r.Limit) / r.Period.Seconds())
	burst := rl.burst(r.Limit)

	rl.fallbackMutex.Lock()
	b, exists := rl.fallbackLimiters[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(every, burst)}
		rl.fallbackLimiters[key] = b
	}
	b.lastSeen = now
	rl.fallbackMutex.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	result := &Result{
		Allowed:   allowed,
		Limit:     r.Limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now.Add(secondsToDuration((float64(burst) - tokens) / float64(every))),
	}
	if !allowed {
		result.RetryAfter = secondsToDuration((1 - tokens) / float64(every))
	}
	return result
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops idle buckets, and everything once the cap is exceeded
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.config.CleanupInterval)

	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	for key, b := range rl.fallbackLimiters {
		if b.lastSeen.Before(cutoff) {
			delete(rl.fallbackLimiters, key)
		}
	}
	if len(rl.fallbackLimiters) > rl.config.MaxFallbackKeys {
		slog.Info("Resetting in-memory rate limiters", "count", len(rl.fallbackLimiters))
		rl.fallbackLimiters = make(map[string]*bucket)
	}
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() error {
	rl.once.Do(func() { close(rl.stop) })
	return nil
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]any {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	stats := map[string]any{
		"backend":           rl.Backend(),
		"redis_enabled":     rl.redisLimiter != nil,
		"fallback_limiters": fallbackCount,
		"config": map[string]any{
			"ip_limit_per_min":       rl.config.IPLimitPerMin,
			"classify_limit_per_min": rl.config.ClassifyLimitPerMin,
			"burst_multiplier":       rl.config.BurstMultiplier,
		},
	}
	if rl.redisLimiter != nil {
		stats["redis_pool"] = rl.redisClient.PoolStats()
	}
	return stats
}
