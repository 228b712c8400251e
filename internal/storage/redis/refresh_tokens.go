package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sponsorhub/server/internal/auth"
)

// RefreshTokenStore keeps refresh credentials in Redis. GETDEL makes
// consumption atomic, so a token redeemed once can never be redeemed again
// even under concurrent refresh calls.
type RefreshTokenStore struct {
	client *Client
}

func NewRefreshTokenStore(client *Client) *RefreshTokenStore {
	return &RefreshTokenStore{client: client}
}

func (s *RefreshTokenStore) Save(ctx context.Context, token string, record auth.RefreshRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal refresh record: %w", err)
	}

	key := s.client.Key("refresh", token)
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) Consume(ctx context.Context, token string) (*auth.RefreshRecord, error) {
	key := s.client.Key("refresh", token)
	payload, err := s.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, auth.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	var record auth.RefreshRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal refresh record: %w", err)
	}
	return &record, nil
}
