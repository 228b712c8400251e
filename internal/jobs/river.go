package jobs

import (
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

// Queue is a durable queue name. The registry below is the single source of
// truth shared by producers and workers; nothing else names a queue.
type Queue string

const (
	QueueEmail         Queue = "email"
	QueueNotifications Queue = "notifications"
)

// AllQueues lists every registered queue.
func AllQueues() []Queue {
	return []Queue{QueueEmail, QueueNotifications}
}

const (
	JobKindEmail        = "send_email"
	JobKindNotification = "send_notification"
)

const (
	EmailMaxAttempts        = 5
	NotificationMaxAttempts = 5
)

// RetrySettings carries the per-kind attempt budgets from configuration.
// Non-positive values fall back to the defaults above.
type RetrySettings struct {
	EmailAttempts        int
	NotificationAttempts int
}

func (s RetrySettings) normalized() RetrySettings {
	if s.EmailAttempts <= 0 {
		s.EmailAttempts = EmailMaxAttempts
	}
	if s.NotificationAttempts <= 0 {
		s.NotificationAttempts = NotificationMaxAttempts
	}
	return s
}

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential
// backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy builds the retry policy with the configured attempt budgets.
func NewRetryPolicy(settings RetrySettings) *RetryPolicy {
	settings = settings.normalized()
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: settings.EmailAttempts,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindEmail: {
				MaxAttempts: settings.EmailAttempts,
				BaseDelay:   30 * time.Second,
				MaxDelay:    30 * time.Minute,
			},
			JobKindNotification: {
				MaxAttempts: settings.NotificationAttempts,
				BaseDelay:   10 * time.Second,
				MaxDelay:    10 * time.Minute,
			},
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	config := p.configFor(job.Kind)
	if config.BaseDelay == 0 {
		return time.Now()
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}

	return time.Now().Add(delay)
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: EmailMaxAttempts, BaseDelay: 30 * time.Second, MaxDelay: 30 * time.Minute}
	}
	if config, ok := p.ByKind[kind]; ok {
		return config
	}
	return p.Default
}

// QueueWorkers sets the concurrency per queue.
type QueueWorkers struct {
	Email         int
	Notifications int
}

// NewClientConfig builds a River client configuration with the retry policy
// and the fixed queue registry.
func NewClientConfig(workers *river.Workers, logger *slog.Logger, concurrency QueueWorkers, retry RetrySettings) *river.Config {
	if concurrency.Email <= 0 {
		concurrency.Email = 5
	}
	if concurrency.Notifications <= 0 {
		concurrency.Notifications = 10
	}

	policy := NewRetryPolicy(retry)
	config := &river.Config{
		Workers:     workers,
		RetryPolicy: policy,
		MaxAttempts: policy.Default.MaxAttempts,
		Queues: map[string]river.QueueConfig{
			string(QueueEmail):         {MaxWorkers: concurrency.Email},
			string(QueueNotifications): {MaxWorkers: concurrency.Notifications},
		},
	}
	if logger != nil {
		config.Logger = logger
		config.ErrorHandler = NewAlertingErrorHandler(logger, nil)
	}
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, workers *river.Workers, logger *slog.Logger, concurrency QueueWorkers, retry RetrySettings) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(workers, logger, concurrency, retry))
}

// NewInsertOnlyClient creates a client that can enqueue but never works jobs.
// The serve process uses it; workers run in their own process.
func NewInsertOnlyClient(pool *pgxpool.Pool, logger *slog.Logger, retry RetrySettings) (*river.Client[pgx.Tx], error) {
	config := &river.Config{RetryPolicy: NewRetryPolicy(retry)}
	if logger != nil {
		config.Logger = logger
	}
	return river.NewClient(riverpgxv5.New(pool), config)
}
