package verifications

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/audit"
	"github.com/sponsorhub/server/internal/auth"
	"github.com/sponsorhub/server/internal/domain/events"
	"github.com/sponsorhub/server/internal/eventbus"
)

// UnitOfWork runs a verification mutation and its audit append as one atomic
// unit. When either side fails the whole unit rolls back.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository, recorder *audit.Recorder) error) error
}

type Service struct {
	repo   Repository
	uow    UnitOfWork
	bus    *eventbus.Bus
	logger zerolog.Logger
}

func NewService(repo Repository, uow UnitOfWork, bus *eventbus.Bus, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		uow:    uow,
		bus:    bus,
		logger: logger.With().Str("component", "verifications").Logger(),
	}
}

// Decide records a verification decision for a company or event with its
// audit entry in the same transaction, then publishes VerificationDecided.
// Tenant isolation holds by construction: the tenant on the record comes
// from the actor claim.
func (s *Service) Decide(ctx context.Context, actor auth.Principal, tenantID string, entityType EntityType, entityID string, decision Decision, reason string) (*Verification, error) {
	if actor.Role.BypassesTenantIsolation() {
		if tenantID == "" {
			tenantID = actor.TenantID
		}
	} else {
		if actor.TenantID == "" {
			return nil, fmt.Errorf("actor has no tenant claim")
		}
		tenantID = actor.TenantID
	}
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}

	verification := Verification{
		ID:         ulid.Make().String(),
		TenantID:   tenantID,
		EntityType: entityType,
		EntityID:   entityID,
		Decision:   decision,
		Reason:     reason,
		DecidedBy:  actor.Subject,
	}

	var created *Verification
	err := s.uow.InTx(ctx, func(ctx context.Context, repo Repository, recorder *audit.Recorder) error {
		stored, err := repo.Create(ctx, verification)
		if err != nil {
			return fmt.Errorf("create verification: %w", err)
		}
		created = stored

		entry := audit.Entry{
			TenantID:   tenantID,
			ActorID:    actor.Subject,
			ActorRole:  string(actor.Role),
			Action:     "verification_decided",
			EntityType: entityTypeName(entityType),
			EntityID:   entityID,
			Metadata: map[string]string{
				"decision": string(decision),
				"reason":   reason,
			},
		}
		if _, err := recorder.Append(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry for %s %s: %w", entityType, entityID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.VerificationDecided{
		TenantID:   tenantID,
		EntityType: string(entityType),
		EntityID:   entityID,
		ActorID:    actor.Subject,
		ActorRole:  string(actor.Role),
		Decision:   string(decision),
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		return created, fmt.Errorf("%w: publish for %s %s: %v", eventbus.ErrDegraded, entityType, entityID, err)
	}
	return created, nil
}

func (s *Service) Latest(ctx context.Context, actor auth.Principal, tenantID string, entityType EntityType, entityID string) (*Verification, error) {
	if !actor.Role.BypassesTenantIsolation() {
		tenantID = actor.TenantID
	}
	return s.repo.GetLatest(ctx, tenantID, entityType, entityID)
}

func entityTypeName(entityType EntityType) string {
	switch entityType {
	case EntityCompany:
		return "Company"
	case EntityEvent:
		return "Event"
	default:
		return string(entityType)
	}
}
