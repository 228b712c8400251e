package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryRefreshTokenStore is an in-process RefreshTokenStore used in tests
// and single-node development setups.
type MemoryRefreshTokenStore struct {
	mu      sync.Mutex
	records map[string]memoryRefreshEntry
}

type memoryRefreshEntry struct {
	record    RefreshRecord
	expiresAt time.Time
}

func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{records: make(map[string]memoryRefreshEntry)}
}

func (s *MemoryRefreshTokenStore) Save(_ context.Context, token string, record RefreshRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[token] = memoryRefreshEntry{record: record, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryRefreshTokenStore) Consume(_ context.Context, token string) (*RefreshRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[token]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	delete(s.records, token)

	if time.Now().After(entry.expiresAt) {
		return nil, ErrRefreshTokenNotFound
	}
	record := entry.record
	return &record, nil
}
