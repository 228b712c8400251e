// Package events defines the domain event types published on the in-process
// bus. Each event carries the complete context of the state change.
package events

import "time"

const (
	TagProposalCreated       = "proposal.created"
	TagProposalStatusChanged = "proposal.status_changed"
	TagVerificationDecided   = "verification.decided"
)

type ProposalCreated struct {
	TenantID   string
	ProposalID string
	CompanyID  string
	EventID    string
	ActorID    string
	ActorRole  string
	Status     string
	OccurredAt time.Time
}

func (ProposalCreated) Tag() string { return TagProposalCreated }

type ProposalStatusChanged struct {
	TenantID       string
	ProposalID     string
	CompanyID      string
	EventID        string
	ActorID        string
	ActorRole      string
	PreviousStatus string
	NewStatus      string
	OccurredAt     time.Time
}

func (ProposalStatusChanged) Tag() string { return TagProposalStatusChanged }

type VerificationDecided struct {
	TenantID   string
	EntityType string
	EntityID   string
	ActorID    string
	ActorRole  string
	Decision   string
	Reason     string
	OccurredAt time.Time
}

func (VerificationDecided) Tag() string { return TagVerificationDecided }
