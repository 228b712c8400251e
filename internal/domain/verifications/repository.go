package verifications

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("verification not found")
	ErrUnknownEntity   = errors.New("unknown verification entity type")
	ErrUnknownDecision = errors.New("unknown verification decision")
)

// EntityType names what is being verified.
type EntityType string

const (
	EntityCompany EntityType = "company"
	EntityEvent   EntityType = "event"
)

func ParseEntityType(raw string) (EntityType, error) {
	switch EntityType(raw) {
	case EntityCompany:
		return EntityCompany, nil
	case EntityEvent:
		return EntityEvent, nil
	default:
		return "", ErrUnknownEntity
	}
}

// Decision is the outcome of a verification review.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionApproved:
		return DecisionApproved, nil
	case DecisionRejected:
		return DecisionRejected, nil
	default:
		return "", ErrUnknownDecision
	}
}

// Verification is one recorded decision about a company or event.
type Verification struct {
	ID         string
	TenantID   string
	EntityType EntityType
	EntityID   string
	Decision   Decision
	Reason     string
	DecidedBy  string
	CreatedAt  time.Time
}

type Repository interface {
	Create(ctx context.Context, verification Verification) (*Verification, error)
	GetLatest(ctx context.Context, tenantID string, entityType EntityType, entityID string) (*Verification, error)
}
