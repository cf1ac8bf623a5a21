package commandbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus on Redis PUBLISH. Subscribers that are not
// connected at publish time miss the message, matching the at-most-once
// contract of the command channel.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus creates a Redis-backed command bus.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, channel, value string) error {
	if err := b.client.Publish(ctx, channel, value).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBus) CheckHealth(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
