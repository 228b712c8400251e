package jobs

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore reserves effect keys so a redelivered job produces the
// same externally observable result as a single delivery. Keys are derived
// from entity id and action, never from the attempt number.
type IdempotencyStore interface {
	// Reserve claims the key. It returns false when the key is already held,
	// meaning the effect has been (or is being) applied.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees a key after a failed attempt so the retry can claim it.
	Release(ctx context.Context, key string) error
}

// MemoryIdempotencyStore is the in-process store used in tests and
// single-node development setups.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{keys: make(map[string]time.Time)}
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.keys[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	s.keys[key] = time.Now().Add(ttl)
	return true, nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
