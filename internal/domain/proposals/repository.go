package proposals

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("proposal not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleStatus       = errors.New("proposal status changed concurrently")
)

// Status is a proposal's lifecycle state.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusWithdrawn   Status = "WITHDRAWN"
)

// legalTransitions is the explicit transition table. Anything absent is
// rejected with ErrInvalidTransition.
var legalTransitions = map[Status][]Status{
	StatusDraft:       {StatusSubmitted, StatusWithdrawn},
	StatusSubmitted:   {StatusUnderReview, StatusWithdrawn},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {},
	StatusRejected:    {},
	StatusWithdrawn:   {},
}

func ParseStatus(raw string) (Status, error) {
	candidate := Status(raw)
	if _, ok := legalTransitions[candidate]; !ok {
		return "", errors.New("unknown proposal status")
	}
	return candidate, nil
}

func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Proposal struct {
	ID          string
	TenantID    string
	CompanyID   string
	EventID     string
	Title       string
	AmountCents int64
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Filters struct {
	Status    Status
	CompanyID string
}

type Pagination struct {
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, proposal Proposal) (*Proposal, error)
	GetByID(ctx context.Context, tenantID, id string) (*Proposal, error)
	// UpdateStatus applies the transition only while the row is still in the
	// expected previous status; a concurrent change fails ErrStaleStatus.
	UpdateStatus(ctx context.Context, tenantID, id string, from, to Status) error
	List(ctx context.Context, tenantID string, filters Filters, pagination Pagination) ([]Proposal, int64, error)
}
