package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/domain/events"
	"github.com/sponsorhub/server/internal/eventbus"
)

// Inserter is the slice of the River client the listeners need. Satisfied by
// *river.Client[pgx.Tx].
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Directory resolves the contact address for an entity at enqueue time, so
// job payloads carry the recipient and workers never look anything up.
type Directory interface {
	ContactEmail(ctx context.Context, tenantID, entityType, entityID string) (string, error)
}

// Listeners bridge the in-process event bus to the durable job queues. They
// do no delivery work themselves; each event becomes exactly one email job
// and one notification job.
type Listeners struct {
	client    Inserter
	directory Directory
	retry     RetrySettings
	logger    zerolog.Logger
}

func NewListeners(client Inserter, directory Directory, retry RetrySettings, logger zerolog.Logger) *Listeners {
	return &Listeners{
		client:    client,
		directory: directory,
		retry:     retry.normalized(),
		logger:    logger.With().Str("component", "job_listeners").Logger(),
	}
}

// Register subscribes the listeners on the bus in a fixed order.
func (l *Listeners) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.TagProposalCreated, l.onProposalCreated)
	bus.Subscribe(events.TagProposalStatusChanged, l.onProposalStatusChanged)
	bus.Subscribe(events.TagVerificationDecided, l.onVerificationDecided)
}

func (l *Listeners) onProposalCreated(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.ProposalCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T for tag %s", event, event.Tag())
	}

	to, err := l.directory.ContactEmail(ctx, e.TenantID, "company", e.CompanyID)
	if err != nil {
		return fmt.Errorf("resolve contact for company %s: %w", e.CompanyID, err)
	}

	emailArgs := EmailArgs{
		TenantID:   e.TenantID,
		To:         to,
		Subject:    "New sponsorship proposal",
		HTML:       fmt.Sprintf("<p>A new sponsorship proposal %s was created.</p>", e.ProposalID),
		Action:     "created",
		EntityType: "Proposal",
		EntityID:   e.ProposalID,
		NewStatus:  e.Status,
		ActorID:    e.ActorID,
	}
	notificationArgs := NotificationArgs{
		TenantID:    e.TenantID,
		RecipientID: e.CompanyID,
		Title:       "New sponsorship proposal",
		Body:        fmt.Sprintf("Proposal %s was created.", e.ProposalID),
		Action:      "created",
		EntityType:  "Proposal",
		EntityID:    e.ProposalID,
		NewStatus:   e.Status,
		ActorID:     e.ActorID,
	}
	return l.enqueue(ctx, emailArgs, notificationArgs)
}

func (l *Listeners) onProposalStatusChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.ProposalStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected event type %T for tag %s", event, event.Tag())
	}

	to, err := l.directory.ContactEmail(ctx, e.TenantID, "company", e.CompanyID)
	if err != nil {
		return fmt.Errorf("resolve contact for company %s: %w", e.CompanyID, err)
	}

	emailArgs := EmailArgs{
		TenantID:       e.TenantID,
		To:             to,
		Subject:        fmt.Sprintf("Proposal moved to %s", e.NewStatus),
		HTML:           fmt.Sprintf("<p>Proposal %s moved from %s to %s.</p>", e.ProposalID, e.PreviousStatus, e.NewStatus),
		Action:         "status_changed:" + e.NewStatus,
		EntityType:     "Proposal",
		EntityID:       e.ProposalID,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		ActorID:        e.ActorID,
	}
	notificationArgs := NotificationArgs{
		TenantID:       e.TenantID,
		RecipientID:    e.CompanyID,
		Title:          fmt.Sprintf("Proposal moved to %s", e.NewStatus),
		Body:           fmt.Sprintf("Proposal %s moved from %s to %s.", e.ProposalID, e.PreviousStatus, e.NewStatus),
		Action:         "status_changed:" + e.NewStatus,
		EntityType:     "Proposal",
		EntityID:       e.ProposalID,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		ActorID:        e.ActorID,
	}
	return l.enqueue(ctx, emailArgs, notificationArgs)
}

func (l *Listeners) onVerificationDecided(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.VerificationDecided)
	if !ok {
		return fmt.Errorf("unexpected event type %T for tag %s", event, event.Tag())
	}

	to, err := l.directory.ContactEmail(ctx, e.TenantID, e.EntityType, e.EntityID)
	if err != nil {
		return fmt.Errorf("resolve contact for %s %s: %w", e.EntityType, e.EntityID, err)
	}

	emailArgs := EmailArgs{
		TenantID:   e.TenantID,
		To:         to,
		Subject:    fmt.Sprintf("Verification %s", e.Decision),
		HTML:       fmt.Sprintf("<p>Your %s verification was %s.</p>", e.EntityType, e.Decision),
		Action:     "verification_decided:" + e.Decision,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Decision:   e.Decision,
		ActorID:    e.ActorID,
	}
	notificationArgs := NotificationArgs{
		TenantID:    e.TenantID,
		RecipientID: e.EntityID,
		Title:       fmt.Sprintf("Verification %s", e.Decision),
		Body:        fmt.Sprintf("Your %s verification was %s.", e.EntityType, e.Decision),
		Action:      "verification_decided:" + e.Decision,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Decision:    e.Decision,
		ActorID:     e.ActorID,
	}
	return l.enqueue(ctx, emailArgs, notificationArgs)
}

// enqueue inserts one job per queue with the configured attempt budget. A
// partial failure is returned so the publisher can observe it; the domain
// mutation is already committed.
func (l *Listeners) enqueue(ctx context.Context, emailArgs EmailArgs, notificationArgs NotificationArgs) error {
	var errs []error
	if _, err := l.client.Insert(ctx, emailArgs, &river.InsertOpts{MaxAttempts: l.retry.EmailAttempts}); err != nil {
		l.logger.Error().Err(err).Str("kind", JobKindEmail).Msg("enqueue failed")
		errs = append(errs, fmt.Errorf("enqueue email job: %w", err))
	}
	if _, err := l.client.Insert(ctx, notificationArgs, &river.InsertOpts{MaxAttempts: l.retry.NotificationAttempts}); err != nil {
		l.logger.Error().Err(err).Str("kind", JobKindNotification).Msg("enqueue failed")
		errs = append(errs, fmt.Errorf("enqueue notification job: %w", err))
	}
	return errors.Join(errs...)
}
