package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateCache implements usecase.RateCache using Redis. Keys are rate lookup
// keys such as "USD:2024-01-05"; values are decimal strings.
type RateCache struct {
	client *redis.Client
	prefix string
}

// NewRateCache creates a new RateCache.
func NewRateCache(client *redis.Client) *RateCache {
	return &RateCache{
		client: client,
		prefix: "rate:",
	}
}

// Get retrieves a cached rate. A miss returns redis.Nil.
func (c *RateCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.prefix+key).Result()
}

// Set stores a rate with TTL.
func (c *RateCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}
