// Package audit provides the append-only log of privileged state changes.
// The log is immutable by contract: the store exposes no update or delete.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/domain/ids"
	"github.com/sponsorhub/server/internal/metrics"
)

// Entry is one append-only audit record. Entries are never updated or
// deleted once stored.
type Entry struct {
	ID         string
	TenantID   string
	ActorID    string
	ActorRole  string
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]string
	CreatedAt  time.Time
}

type Filters struct {
	Action     string
	EntityType string
	ActorID    string
}

type Pagination struct {
	Limit  int
	Offset int
}

// Store is the persistence contract. Query returns entries ordered newest
// first together with the total count for the tenant and filters.
type Store interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	Query(ctx context.Context, tenantID string, filters Filters, pagination Pagination) ([]Entry, int64, error)
	History(ctx context.Context, entityType, entityID string) ([]Entry, error)
}

// Recorder assigns ids and timestamps and delegates to the store.
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Append records one privileged state change. The tenant id must be the
// acting principal's tenant at creation time; cross-tenant entries are a
// programming error and rejected outright.
func (r *Recorder) Append(ctx context.Context, entry Entry) (Entry, error) {
	if entry.TenantID == "" || entry.ActorID == "" || entry.Action == "" {
		return Entry{}, fmt.Errorf("audit entry requires tenant, actor, and action")
	}
	if entry.ID == "" {
		id, err := ids.NewULID()
		if err != nil {
			return Entry{}, fmt.Errorf("mint audit entry id: %w", err)
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	stored, err := r.store.Append(ctx, entry)
	if err != nil {
		metrics.AuditAppendFailures.Inc()
		r.logger.Error().
			Err(err).
			Str("tenant_id", entry.TenantID).
			Str("action", entry.Action).
			Str("entity_type", entry.EntityType).
			Str("entity_id", entry.EntityID).
			Msg("audit append failed")
		return Entry{}, err
	}

	metrics.AuditAppends.Inc()
	return stored, nil
}

func (r *Recorder) Query(ctx context.Context, tenantID string, filters Filters, pagination Pagination) ([]Entry, int64, error) {
	if pagination.Limit <= 0 || pagination.Limit > 200 {
		pagination.Limit = 50
	}
	if pagination.Offset < 0 {
		pagination.Offset = 0
	}
	return r.store.Query(ctx, tenantID, filters, pagination)
}

func (r *Recorder) History(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	return r.store.History(ctx, entityType, entityID)
}
