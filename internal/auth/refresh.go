package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRefreshFailed means the refresh credential is unknown, already consumed,
// or past its lifetime. The session is truly expired; callers should route the
// user back through login rather than retry.
var ErrRefreshFailed = errors.New("refresh failed")

// ErrRefreshTokenNotFound is returned by stores when a token has no record.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshRecord is the server-side state behind an opaque refresh credential.
type RefreshRecord struct {
	Subject     string `json:"subject"`
	Role        string `json:"role"`
	TenantID    string `json:"tenant_id,omitempty"`
	CompanyID   string `json:"company_id,omitempty"`
	OrganizerID string `json:"organizer_id,omitempty"`
}

// RefreshTokenStore persists refresh credentials. Consume must atomically
// read and delete so a token can never be redeemed twice.
type RefreshTokenStore interface {
	Save(ctx context.Context, token string, record RefreshRecord, ttl time.Duration) error
	Consume(ctx context.Context, token string) (*RefreshRecord, error)
}

// TokenPair is the credential material handed to a client.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RefreshService issues and rotates credential pairs.
type RefreshService struct {
	verifier *Verifier
	store    RefreshTokenStore
	ttl      time.Duration
}

func NewRefreshService(verifier *Verifier, store RefreshTokenStore, ttl time.Duration) *RefreshService {
	return &RefreshService{verifier: verifier, store: store, ttl: ttl}
}

// Issue mints a fresh access token and a new single-use refresh credential.
func (s *RefreshService) Issue(ctx context.Context, p Principal) (TokenPair, error) {
	access, err := s.verifier.Generate(p)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}

	refresh := uuid.NewString()
	record := RefreshRecord{
		Subject:     p.Subject,
		Role:        string(p.Role),
		TenantID:    p.TenantID,
		CompanyID:   p.CompanyID,
		OrganizerID: p.OrganizerID,
	}
	if err := s.store.Save(ctx, refresh, record, s.ttl); err != nil {
		return TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.verifier.expiry),
	}, nil
}

// Rotate consumes a refresh credential and issues a replacement pair. The old
// credential is deleted before the new one is minted, so a replayed token
// always fails ErrRefreshFailed.
func (s *RefreshService) Rotate(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrRefreshFailed
	}

	record, err := s.store.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return TokenPair{}, ErrRefreshFailed
		}
		return TokenPair{}, fmt.Errorf("consume refresh token: %w", err)
	}

	role, err := ParseRole(record.Role)
	if err != nil {
		return TokenPair{}, ErrRefreshFailed
	}

	return s.Issue(ctx, Principal{
		Subject:     record.Subject,
		Role:        role,
		TenantID:    record.TenantID,
		CompanyID:   record.CompanyID,
		OrganizerID: record.OrganizerID,
	})
}
