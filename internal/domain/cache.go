package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations. Used for dashboard
// summaries and windowed alert counters.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetSummary retrieves a cached dashboard summary.
	GetSummary(ctx context.Context, key string) (*DashboardSummary, error)

	// SetSummary caches a dashboard summary.
	SetSummary(ctx context.Context, key string, summary *DashboardSummary, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for windowed alert counts.
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// EnableTwoPhase layers a local LRU in front of Redis
	EnableTwoPhase bool

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}
