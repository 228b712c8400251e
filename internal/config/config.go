package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Auth           AuthConfig
	Jobs           JobsConfig
	Email          EmailConfig
	Notify         NotifyConfig
	Logging        LoggingConfig
	AdminBootstrap AdminBootstrapConfig
	Environment    string
}

// AdminBootstrapConfig seeds the first SUPER_ADMIN account on startup when
// set. Skipped entirely when any field is empty or the user already exists.
type AdminBootstrapConfig struct {
	Email    string
	Password string
	TenantID string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdle        int
}

// RedisConfig addresses a store that may be shared with unrelated cached
// data; KeyPrefix namespaces every key this server writes so they never
// collide.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type JobsConfig struct {
	RetryEmail        int
	RetryNotification int
	WorkersEmail      int
	WorkersNotify     int
}

type EmailConfig struct {
	Enabled      bool
	From         string
	ResendAPIKey string
}

type NotifyConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvInt("SERVER_PORT", 8080),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
			MaxIdle:        getEnvInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "sponsorhub:"),
			DialTimeout:  time.Duration(getEnvInt("REDIS_DIAL_TIMEOUT_MS", 5000)) * time.Millisecond,
			ReadTimeout:  time.Duration(getEnvInt("REDIS_READ_TIMEOUT_MS", 3000)) * time.Millisecond,
			WriteTimeout: time.Duration(getEnvInt("REDIS_WRITE_TIMEOUT_MS", 3000)) * time.Millisecond,
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			AccessExpiry:  time.Duration(getEnvInt("JWT_ACCESS_EXPIRY_MINUTES", 15)) * time.Minute,
			RefreshExpiry: time.Duration(getEnvInt("JWT_REFRESH_EXPIRY_HOURS", 168)) * time.Hour,
			Issuer:        getEnv("JWT_ISSUER", "sponsorhub"),
		},
		Jobs: JobsConfig{
			RetryEmail:        getEnvInt("JOB_RETRY_EMAIL", 5),
			RetryNotification: getEnvInt("JOB_RETRY_NOTIFICATION", 5),
			WorkersEmail:      getEnvInt("JOB_WORKERS_EMAIL", 5),
			WorkersNotify:     getEnvInt("JOB_WORKERS_NOTIFICATION", 10),
		},
		Email: EmailConfig{
			Enabled:      getEnvBool("EMAIL_ENABLED", false),
			From:         getEnv("EMAIL_FROM", "no-reply@sponsorhub.dev"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		Notify: NotifyConfig{
			Enabled:    getEnvBool("NOTIFY_ENABLED", false),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    time.Duration(getEnvInt("NOTIFY_TIMEOUT_MS", 5000)) * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		AdminBootstrap: AdminBootstrapConfig{
			Email:    getEnv("ADMIN_BOOTSTRAP_EMAIL", ""),
			Password: getEnv("ADMIN_BOOTSTRAP_PASSWORD", ""),
			TenantID: getEnv("ADMIN_BOOTSTRAP_TENANT_ID", ""),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Email.Enabled && cfg.Email.ResendAPIKey == "" {
		return Config{}, fmt.Errorf("RESEND_API_KEY is required when EMAIL_ENABLED=true")
	}
	if cfg.Notify.Enabled && cfg.Notify.WebhookURL == "" {
		return Config{}, fmt.Errorf("NOTIFY_WEBHOOK_URL is required when NOTIFY_ENABLED=true")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
