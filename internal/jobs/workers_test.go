package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sponsorhub/server/internal/email"
	"github.com/sponsorhub/server/internal/notify"
)

type fakeSender struct {
	sent    []email.Message
	sendErr error
}

func (s *fakeSender) Send(ctx context.Context, msg email.Message) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg)
	return nil
}

func emailJob(args EmailArgs, attempt int) *river.Job[EmailArgs] {
	return &river.Job[EmailArgs]{
		JobRow: &rivertype.JobRow{Kind: JobKindEmail, Attempt: attempt, MaxAttempts: EmailMaxAttempts},
		Args:   args,
	}
}

func notificationJob(args NotificationArgs, attempt int) *river.Job[NotificationArgs] {
	return &river.Job[NotificationArgs]{
		JobRow: &rivertype.JobRow{Kind: JobKindNotification, Attempt: attempt, MaxAttempts: NotificationMaxAttempts},
		Args:   args,
	}
}

func testEmailArgs() EmailArgs {
	return EmailArgs{
		TenantID:   "tenant-a",
		To:         "sponsor@example.com",
		Subject:    "Proposal moved to SUBMITTED",
		HTML:       "<p>moved</p>",
		Action:     "status_changed:SUBMITTED",
		EntityType: "Proposal",
		EntityID:   "prop-1",
		NewStatus:  "SUBMITTED",
		ActorID:    "user-1",
	}
}

func TestEmailWorkerDeliversOnce(t *testing.T) {
	sender := &fakeSender{}
	worker := EmailWorker{Sender: sender, Idempotency: NewMemoryIdempotencyStore(), Logger: zerolog.Nop()}

	require.NoError(t, worker.Work(context.Background(), emailJob(testEmailArgs(), 1)))
	require.Len(t, sender.sent, 1)
	require.Equal(t, "sponsor@example.com", sender.sent[0].To)
}

func TestEmailWorkerRedeliveryIsNoOp(t *testing.T) {
	sender := &fakeSender{}
	worker := EmailWorker{Sender: sender, Idempotency: NewMemoryIdempotencyStore(), Logger: zerolog.Nop()}
	args := testEmailArgs()

	require.NoError(t, worker.Work(context.Background(), emailJob(args, 1)))
	// Redelivery of the same logical job, different attempt number.
	require.NoError(t, worker.Work(context.Background(), emailJob(args, 2)))

	require.Len(t, sender.sent, 1)
}

func TestEmailWorkerReleasesKeyOnFailure(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("smtp down")}
	store := NewMemoryIdempotencyStore()
	worker := EmailWorker{Sender: sender, Idempotency: store, Logger: zerolog.Nop()}
	args := testEmailArgs()

	err := worker.Work(context.Background(), emailJob(args, 1))
	require.Error(t, err)

	// The retry must be able to claim the key and deliver.
	sender.sendErr = nil
	require.NoError(t, worker.Work(context.Background(), emailJob(args, 2)))
	require.Len(t, sender.sent, 1)
}

func TestEmailEffectKeyIgnoresAttempt(t *testing.T) {
	args := testEmailArgs()
	require.Equal(t, args.EffectKey(), args.EffectKey())

	other := args
	other.Action = "status_changed:UNDER_REVIEW"
	require.NotEqual(t, args.EffectKey(), other.EffectKey())
}

func TestNotificationWorkerDeliversOnce(t *testing.T) {
	sink := notify.NewMemorySink()
	worker := NotificationWorker{Sink: sink, Idempotency: NewMemoryIdempotencyStore(), Logger: zerolog.Nop()}
	args := NotificationArgs{
		TenantID:    "tenant-a",
		RecipientID: "company-1",
		Title:       "Proposal moved to SUBMITTED",
		Body:        "moved",
		Action:      "status_changed:SUBMITTED",
		EntityType:  "Proposal",
		EntityID:    "prop-1",
		NewStatus:   "SUBMITTED",
		ActorID:     "user-1",
	}

	require.NoError(t, worker.Work(context.Background(), notificationJob(args, 1)))
	require.NoError(t, worker.Work(context.Background(), notificationJob(args, 2)))

	require.Len(t, sink.Messages(), 1)
}

func TestNotificationWorkerReleasesKeyOnFailure(t *testing.T) {
	sink := notify.NewMemorySink()
	sink.FailWith(errors.New("webhook down"))
	store := NewMemoryIdempotencyStore()
	worker := NotificationWorker{Sink: sink, Idempotency: store, Logger: zerolog.Nop()}
	args := NotificationArgs{
		TenantID:    "tenant-a",
		RecipientID: "company-1",
		Title:       "t",
		Body:        "b",
		Action:      "created",
		EntityType:  "Proposal",
		EntityID:    "prop-1",
	}

	require.Error(t, worker.Work(context.Background(), notificationJob(args, 1)))

	sink.FailWith(nil)
	require.NoError(t, worker.Work(context.Background(), notificationJob(args, 2)))
	require.Len(t, sink.Messages(), 1)
}

func TestInsertOptsCarryQueueAndMaxAttempts(t *testing.T) {
	emailOpts := EmailArgs{}.InsertOpts()
	require.Equal(t, string(QueueEmail), emailOpts.Queue)
	require.Equal(t, EmailMaxAttempts, emailOpts.MaxAttempts)

	notifyOpts := NotificationArgs{}.InsertOpts()
	require.Equal(t, string(QueueNotifications), notifyOpts.Queue)
	require.Equal(t, NotificationMaxAttempts, notifyOpts.MaxAttempts)
}
