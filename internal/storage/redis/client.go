// Package redis wraps the shared Redis store used for refresh credentials
// and worker idempotency keys. Every key is namespaced under the configured
// prefix so it never collides with unrelated cached data in the same store.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/sponsorhub/server/internal/config"
)

// Client wraps the go-redis client with the configured key prefix.
type Client struct {
	*redis.Client
	prefix string
}

// New creates a Redis client from the provided configuration and verifies
// connectivity, bounded by the configured dial timeout.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client, prefix: cfg.KeyPrefix}, nil
}

// Key applies the configured namespace prefix.
func (c *Client) Key(parts ...string) string {
	return buildKey(c.prefix, parts...)
}

// buildKey joins the prefix and parts with single colons regardless of
// whether the configured prefix carries a trailing separator.
func buildKey(prefix string, parts ...string) string {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		return strings.Join(parts, ":")
	}
	return strings.Join(append([]string{prefix}, parts...), ":")
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}
