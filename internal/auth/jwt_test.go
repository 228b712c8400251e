package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func testVerifier(expiry time.Duration) *Verifier {
	return NewVerifier(testSecret, expiry, "sponsorhub-test")
}

func TestGenerateVerifyRoundtrip(t *testing.T) {
	v := testVerifier(time.Minute)

	token, err := v.Generate(Principal{
		Subject:   "user-1",
		Role:      RoleSponsor,
		TenantID:  "tenant-a",
		CompanyID: "company-1",
	})
	require.NoError(t, err)

	p, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", p.Subject)
	require.Equal(t, RoleSponsor, p.Role)
	require.Equal(t, "tenant-a", p.TenantID)
	require.Equal(t, "company-1", p.CompanyID)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	v := testVerifier(time.Minute)
	token, err := v.Generate(Principal{Subject: "user-1", Role: RoleUser, TenantID: "tenant-a"})
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = v.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := testVerifier(time.Minute)
	token, err := v.Generate(Principal{Subject: "user-1", Role: RoleUser, TenantID: "tenant-a"})
	require.NoError(t, err)

	other := NewVerifier("completely-different-secret-value!!!", time.Minute, "sponsorhub-test")
	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	minted := NewVerifier(testSecret, time.Minute, "some-other-service")
	token, err := minted.Generate(Principal{Subject: "user-1", Role: RoleUser, TenantID: "tenant-a"})
	require.NoError(t, err)

	_, err = testVerifier(time.Minute).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredTokenIsDistinguishable(t *testing.T) {
	v := testVerifier(-time.Minute)
	token, err := v.Generate(Principal{Subject: "user-1", Role: RoleUser, TenantID: "tenant-a"})
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, ErrExpiredToken)
	require.NotErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmptyToken(t *testing.T) {
	v := testVerifier(time.Minute)
	_, err := v.Verify("")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestGenerateRequiresTenantExceptSuperAdmin(t *testing.T) {
	v := testVerifier(time.Minute)

	_, err := v.Generate(Principal{Subject: "user-1", Role: RoleAdmin})
	require.ErrorIs(t, err, ErrInvalidToken)

	token, err := v.Generate(Principal{Subject: "root-1", Role: RoleSuperAdmin})
	require.NoError(t, err)

	p, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, RoleSuperAdmin, p.Role)
	require.Empty(t, p.TenantID)
}

func TestTokenFromHeader(t *testing.T) {
	token, err := TokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", token)

	token, err = TokenFromHeader("bearer abc")
	require.NoError(t, err)
	require.Equal(t, "abc", token)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		_, err := TokenFromHeader(header)
		require.ErrorIs(t, err, ErrMissingToken, "header %q", header)
	}
}
