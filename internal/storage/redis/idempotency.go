package redis

import (
	"context"
	"fmt"
	"time"
)

// IdempotencyStore reserves job effect keys with SETNX under the configured
// namespace prefix.
type IdempotencyStore struct {
	client *Client
}

func NewIdempotencyStore(client *Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	reserved, err := s.client.SetNX(ctx, s.client.Key("effect", key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve effect key: %w", err)
	}
	return reserved, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.client.Key("effect", key)).Err(); err != nil {
		return fmt.Errorf("release effect key: %w", err)
	}
	return nil
}
