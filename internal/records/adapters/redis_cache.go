package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"holdfast/internal/platform/redis"
)

// RedisCache adapts the platform Redis client to the record cache
// collaborator. Values are stored JSON-encoded.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache wraps a platform Redis client. The key prefix namespaces this
// layer's entries within a shared instance.
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "holdfast:records:"
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the decoded cached value for key, or nil when absent.
func (c *RedisCache) Get(ctx context.Context, key string) (any, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return value, nil
}

// Set caches a JSON-encoded value under key with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Clear removes the cached value for key, if any.
func (c *RedisCache) Clear(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("cache clear %s: %w", key, err)
	}
	return nil
}
