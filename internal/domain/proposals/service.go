package proposals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/audit"
	"github.com/sponsorhub/server/internal/auth"
	"github.com/sponsorhub/server/internal/domain/events"
	"github.com/sponsorhub/server/internal/eventbus"
)

// UnitOfWork runs a proposal mutation and its audit append as one atomic
// unit. When either side fails the whole unit rolls back; a committed
// proposal change therefore always has its audit entry.
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
		logger: logger.With().Str("component", "proposals").Logger(),
	}
}

type CreateParams struct {
	CompanyID   string
	EventID     string
	Title       string
	AmountCents int64
}

// Create stores a new DRAFT proposal under the actor's tenant with its audit
// entry in the same transaction, then publishes ProposalCreated. The tenant
// id on the proposal, the audit entry, and the event all come from the actor
// claim, never from request input.
func (s *Service) Create(ctx context.Context, actor auth.Principal, tenantID string, params CreateParams) (*Proposal, error) {
	tenantID, err := effectiveTenant(actor, tenantID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("proposal title is required")
	}

	proposal := Proposal{
		ID:          ulid.Make().String(),
		TenantID:    tenantID,
		CompanyID:   params.CompanyID,
		EventID:     params.EventID,
		Title:       params.Title,
		AmountCents: params.AmountCents,
		Status:      StatusDraft,
	}

	var created *Proposal
	err = s.uow.InTx(ctx, func(ctx context.Context, repo Repository, recorder *audit.Recorder) error {
		stored, err := repo.Create(ctx, proposal)
		if err != nil {
			return fmt.Errorf("create proposal: %w", err)
		}
		created = stored

		entry := audit.Entry{
			TenantID:   tenantID,
			ActorID:    actor.Subject,
			ActorRole:  string(actor.Role),
			Action:     "created",
			EntityType: "Proposal",
			EntityID:   stored.ID,
			Metadata:   map[string]string{"status": string(stored.Status)},
		}
		if _, err := recorder.Append(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry for proposal %s: %w", stored.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.ProposalCreated{
		TenantID:   tenantID,
		ProposalID: created.ID,
		CompanyID:  created.CompanyID,
		EventID:    created.EventID,
		ActorID:    actor.Subject,
		ActorRole:  string(actor.Role),
		Status:     string(created.Status),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		return created, fmt.Errorf("%w: publish for proposal %s: %v", eventbus.ErrDegraded, created.ID, err)
	}
	return created, nil
}

// ChangeStatus moves a proposal through the transition table. The status
// update and its audit entry commit in one transaction; nothing is recorded
// for a rejected transition. Exactly one ProposalStatusChanged event is
// published per successful transition, after commit.
func (s *Service) ChangeStatus(ctx context.Context, actor auth.Principal, tenantID, proposalID string, to Status) (*Proposal, error) {
	tenantID, err := effectiveTenant(actor, tenantID)
	if err != nil {
		return nil, err
	}

	var current *Proposal
	var previous Status
	err = s.uow.InTx(ctx, func(ctx context.Context, repo Repository, recorder *audit.Recorder) error {
		found, err := repo.GetByID(ctx, tenantID, proposalID)
		if err != nil {
			return err
		}
		if !CanTransition(found.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, found.Status, to)
		}

		if err := repo.UpdateStatus(ctx, tenantID, proposalID, found.Status, to); err != nil {
			return err
		}

		previous = found.Status
		found.Status = to
		found.UpdatedAt = time.Now().UTC()
		current = found

		entry := audit.Entry{
			TenantID:   tenantID,
			ActorID:    actor.Subject,
			ActorRole:  string(actor.Role),
			Action:     "status_changed",
			EntityType: "Proposal",
			EntityID:   proposalID,
			Metadata: map[string]string{
				"previous_status": string(previous),
				"new_status":      string(to),
			},
		}
		if _, err := recorder.Append(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry for proposal %s: %w", proposalID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := events.ProposalStatusChanged{
		TenantID:       tenantID,
		ProposalID:     proposalID,
		CompanyID:      current.CompanyID,
		EventID:        current.EventID,
		ActorID:        actor.Subject,
		ActorRole:      string(actor.Role),
		PreviousStatus: string(previous),
		NewStatus:      string(to),
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		return current, fmt.Errorf("%w: publish for proposal %s: %v", eventbus.ErrDegraded, proposalID, err)
	}
	return current, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Principal, tenantID, proposalID string) (*Proposal, error) {
	tenantID, err := effectiveTenant(actor, tenantID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID, proposalID)
}

func (s *Service) List(ctx context.Context, actor auth.Principal, tenantID string, filters Filters, pagination Pagination) ([]Proposal, int64, error) {
	tenantID, err := effectiveTenant(actor, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if pagination.Limit <= 0 || pagination.Limit > 200 {
		pagination.Limit = 50
	}
	return s.repo.List(ctx, tenantID, filters, pagination)
}

// effectiveTenant pins every data access to the actor's tenant claim.
// SUPER_ADMIN is the only role allowed to operate on a tenant it does not
// belong to, in which case the route-level tenant is used.
func effectiveTenant(actor auth.Principal, routeTenant string) (string, error) {
	if actor.Role.BypassesTenantIsolation() {
		if routeTenant != "" {
			return routeTenant, nil
		}
		return actor.TenantID, nil
	}
	if actor.TenantID == "" {
		return "", fmt.Errorf("actor has no tenant claim")
	}
	return actor.TenantID, nil
}
