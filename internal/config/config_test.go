package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/sponsorhub_test")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessExpiry)
	require.Equal(t, 168*time.Hour, cfg.Auth.RefreshExpiry)
	require.Equal(t, "sponsorhub:", cfg.Redis.KeyPrefix)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 5, cfg.Jobs.RetryEmail)
	require.False(t, cfg.Email.Enabled)
	require.Equal(t, "development", cfg.Environment)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sponsorhub_test")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadEnabledEmailRequiresAPIKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("RESEND_API_KEY", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("RESEND_API_KEY", "re_123")
	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Email.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_ACCESS_EXPIRY_MINUTES", "5")
	t.Setenv("REDIS_KEY_PREFIX", "staging:")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessExpiry)
	require.Equal(t, "staging:", cfg.Redis.KeyPrefix)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	require.Equal(t, 42, getEnvInt("SOME_INT", 42))
}
