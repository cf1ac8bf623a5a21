package statecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a Redis hash per device.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed state cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) GetField(ctx context.Context, key, field string) (string, bool, error) {
	value, err := c.client.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading cache field %s/%s: %w", key, field, err)
	}
	return value, true, nil
}

func (c *RedisCache) SetField(ctx context.Context, key, field, value string) error {
	if err := c.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("writing cache field %s/%s: %w", key, field, err)
	}
	return nil
}

func (c *RedisCache) CheckHealth(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
