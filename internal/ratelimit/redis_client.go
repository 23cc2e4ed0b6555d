package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the shared Redis connection. A disabled client makes
// the limiter run on in-memory buckets only.
type RedisClient struct {
	client  *redis.Client
	enabled bool
	addr    string
}

// NewRedisClient connects to addr. An empty addr returns a disabled client
// and no error; a failed ping returns a disabled client and the error.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*RedisClient, error) {
	if addr == "" {
		slog.Info("REDIS_ADDR not set, rate limiting runs in memory")
		return &RedisClient{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   2,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
		PoolTimeout:  2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return &RedisClient{addr: addr}, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	slog.Info("Redis connected", "addr", addr, "db", db)

	return &RedisClient{
		client:  client,
		enabled: true,
		addr:    addr,
	}, nil
}

// NewRedisClientFrom wraps an existing client without pinging it
func NewRedisClientFrom(client *redis.Client) *RedisClient {
	if client == nil {
		return &RedisClient{}
	}
	return &RedisClient{client: client, enabled: true, addr: client.Options().Addr}
}

// Client returns the underlying Redis client
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// IsEnabled returns whether Redis is in use
func (r *RedisClient) IsEnabled() bool {
	return r != nil && r.enabled
}

// HealthCheck pings Redis
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if !r.IsEnabled() {
		return fmt.Errorf("redis is disabled")
	}
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r.IsEnabled() && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// PoolStats returns Redis connection pool statistics
func (r *RedisClient) PoolStats() map[string]any {
	if !r.IsEnabled() || r.client == nil {
		return map[string]any{"enabled": false}
	}

	stats := r.client.PoolStats()
	return map[string]any{
		"enabled":     true,
		"addr":        r.addr,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
