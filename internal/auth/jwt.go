package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	Role        string `json:"role"`
	TenantID    string `json:"tenant_id,omitempty"`
	CompanyID   string `json:"company_id,omitempty"`
	OrganizerID string `json:"organizer_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated identity resolved from a credential for one
// request. It is immutable once decoded and reconstructed fresh per request.
type Principal struct {
	Subject     string
	Role        Role
	TenantID    string
	CompanyID   string
	OrganizerID string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Verifier decodes and validates bearer credentials. It performs no I/O.
type Verifier struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewVerifier(secret string, expiry time.Duration, issuer string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate mints a signed access token for the principal.
func (v *Verifier) Generate(p Principal) (string, error) {
	if p.Subject == "" || p.Role == "" {
		return "", ErrInvalidToken
	}
	if p.TenantID == "" && !p.Role.BypassesTenantIsolation() {
		return "", ErrInvalidToken
	}

	now := time.Now()
	claims := &Claims{
		Role:        string(p.Role),
		TenantID:    p.TenantID,
		CompanyID:   p.CompanyID,
		OrganizerID: p.OrganizerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify decodes the token and returns the principal it carries.
// Malformed or tampered input fails with ErrInvalidToken; a structurally
// valid token past its expiry fails with ErrExpiredToken.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return principalFromClaims(claims)
}

func principalFromClaims(claims *Claims) (*Principal, error) {
	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.TenantID == "" && !role.BypassesTenantIsolation() {
		return nil, ErrInvalidToken
	}

	p := &Principal{
		Subject:     claims.Subject,
		Role:        role,
		TenantID:    claims.TenantID,
		CompanyID:   claims.CompanyID,
		OrganizerID: claims.OrganizerID,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// TokenFromHeader extracts a bearer token from an Authorization header value.
func TokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}

type contextKey string

const principalKey contextKey = "principal"

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey).(*Principal); ok {
		return p
	}
	return nil
}
