package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/email"
	"github.com/sponsorhub/server/internal/metrics"
	"github.com/sponsorhub/server/internal/notify"
)

// effectKeyTTL bounds how long an effect key stays reserved. Long enough to
// cover the full retry schedule of a job, short enough that the store does
// not accumulate keys forever.
const effectKeyTTL = 7 * 24 * time.Hour

// EmailArgs is a self-contained email job payload. A retried job minutes
// later still has everything needed; nothing references in-memory state.
type EmailArgs struct {
	TenantID       string `json:"tenant_id"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	HTML           string `json:"html"`
	Action         string `json:"action"`
	EntityType     string `json:"entity_type"`
	EntityID       string `json:"entity_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
	NewStatus      string `json:"new_status,omitempty"`
	Decision       string `json:"decision,omitempty"`
	ActorID        string `json:"actor_id"`
}

func (EmailArgs) Kind() string { return JobKindEmail }

func (EmailArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       string(QueueEmail),
		MaxAttempts: EmailMaxAttempts,
	}
}

// EffectKey identifies the externally observable effect. Keyed by entity and
// action so redelivery of the same logical job is a no-op.
func (a EmailArgs) EffectKey() string {
	return fmt.Sprintf("email:%s:%s:%s:%s:%s", a.TenantID, a.EntityType, a.EntityID, a.Action, a.To)
}

// NotificationArgs is a self-contained notification job payload.
type NotificationArgs struct {
	TenantID       string `json:"tenant_id"`
	RecipientID    string `json:"recipient_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Action         string `json:"action"`
	EntityType     string `json:"entity_type"`
	EntityID       string `json:"entity_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
	NewStatus      string `json:"new_status,omitempty"`
	Decision       string `json:"decision,omitempty"`
	ActorID        string `json:"actor_id"`
}

func (NotificationArgs) Kind() string { return JobKindNotification }

func (NotificationArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       string(QueueNotifications),
		MaxAttempts: NotificationMaxAttempts,
	}
}

func (a NotificationArgs) EffectKey() string {
	return fmt.Sprintf("notify:%s:%s:%s:%s:%s", a.TenantID, a.EntityType, a.EntityID, a.Action, a.RecipientID)
}

// EmailWorker delivers email jobs. Processing is idempotent: the effect key
// is reserved before the send, released on failure so the retry can claim
// it, and left in place on success so a redelivered job does nothing.
type EmailWorker struct {
	river.WorkerDefaults[EmailArgs]
	Sender      email.Sender
	Idempotency IdempotencyStore
	Logger      zerolog.Logger
}

func (EmailWorker) Kind() string { return JobKindEmail }

func (w EmailWorker) Work(ctx context.Context, job *river.Job[EmailArgs]) error {
	if w.Sender == nil {
		return fmt.Errorf("email sender not configured")
	}
	if w.Idempotency == nil {
		return fmt.Errorf("idempotency store not configured")
	}

	key := job.Args.EffectKey()
	reserved, err := w.Idempotency.Reserve(ctx, key, effectKeyTTL)
	if err != nil {
		return fmt.Errorf("reserve effect key: %w", err)
	}
	if !reserved {
		w.Logger.Info().
			Str("effect_key", key).
			Int("attempt", job.Attempt).
			Msg("email already delivered, skipping redelivery")
		metrics.JobsProcessed.WithLabelValues(JobKindEmail, "duplicate").Inc()
		return nil
	}

	msg := email.Message{
		To:      job.Args.To,
		Subject: job.Args.Subject,
		HTML:    job.Args.HTML,
	}
	if err := w.Sender.Send(ctx, msg); err != nil {
		if releaseErr := w.Idempotency.Release(ctx, key); releaseErr != nil {
			w.Logger.Error().Err(releaseErr).Str("effect_key", key).Msg("release effect key failed")
		}
		metrics.JobsProcessed.WithLabelValues(JobKindEmail, "error").Inc()
		return fmt.Errorf("send email: %w", err)
	}

	metrics.JobsProcessed.WithLabelValues(JobKindEmail, "ok").Inc()
	return nil
}

// NotificationWorker delivers notification jobs with the same idempotency
// contract as EmailWorker.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationArgs]
	Sink        notify.Sink
	Idempotency IdempotencyStore
	Logger      zerolog.Logger
}

func (NotificationWorker) Kind() string { return JobKindNotification }

func (w NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationArgs]) error {
	if w.Sink == nil {
		return fmt.Errorf("notification sink not configured")
	}
	if w.Idempotency == nil {
		return fmt.Errorf("idempotency store not configured")
	}

	key := job.Args.EffectKey()
	reserved, err := w.Idempotency.Reserve(ctx, key, effectKeyTTL)
	if err != nil {
		return fmt.Errorf("reserve effect key: %w", err)
	}
	if !reserved {
		w.Logger.Info().
			Str("effect_key", key).
			Int("attempt", job.Attempt).
			Msg("notification already delivered, skipping redelivery")
		metrics.JobsProcessed.WithLabelValues(JobKindNotification, "duplicate").Inc()
		return nil
	}

	msg := notify.Message{
		TenantID:    job.Args.TenantID,
		RecipientID: job.Args.RecipientID,
		Title:       job.Args.Title,
		Body:        job.Args.Body,
		EntityType:  job.Args.EntityType,
		EntityID:    job.Args.EntityID,
	}
	if err := w.Sink.Deliver(ctx, msg); err != nil {
		if releaseErr := w.Idempotency.Release(ctx, key); releaseErr != nil {
			w.Logger.Error().Err(releaseErr).Str("effect_key", key).Msg("release effect key failed")
		}
		metrics.JobsProcessed.WithLabelValues(JobKindNotification, "error").Inc()
		return fmt.Errorf("deliver notification: %w", err)
	}

	metrics.JobsProcessed.WithLabelValues(JobKindNotification, "ok").Inc()
	return nil
}

// NewWorkers registers every worker against the queue registry.
func NewWorkers(sender email.Sender, sink notify.Sink, idempotency IdempotencyStore, logger zerolog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[EmailArgs](workers, EmailWorker{
		Sender:      sender,
		Idempotency: idempotency,
		Logger:      logger.With().Str("worker", JobKindEmail).Logger(),
	})
	river.AddWorker[NotificationArgs](workers, NotificationWorker{
		Sink:        sink,
		Idempotency: idempotency,
		Logger:      logger.With().Str("worker", JobKindNotification).Logger(),
	})
	return workers
}
