package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorhub/server/internal/domain/verifications"
)

type VerificationRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *VerificationRepository) Create(ctx context.Context, verification verifications.Verification) (*verifications.Verification, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO verifications (id, tenant_id, entity_type, entity_id, decision, reason, decided_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, tenant_id, entity_type, entity_id, decision, reason, decided_by, created_at
`, verification.ID, verification.TenantID, verification.EntityType, verification.EntityID, verification.Decision, verification.Reason, verification.DecidedBy)

	return scanVerification(row)
}

func (r *VerificationRepository) GetLatest(ctx context.Context, tenantID string, entityType verifications.EntityType, entityID string) (*verifications.Verification, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, tenant_id, entity_type, entity_id, decision, reason, decided_by, created_at
  FROM verifications
 WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
 ORDER BY created_at DESC
 LIMIT 1
`, tenantID, entityType, entityID)

	verification, err := scanVerification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, verifications.ErrNotFound
		}
		return nil, err
	}
	return verification, nil
}

func scanVerification(row pgx.Row) (*verifications.Verification, error) {
	var verification verifications.Verification
	var reason *string
	if err := row.Scan(
		&verification.ID,
		&verification.TenantID,
		&verification.EntityType,
		&verification.EntityID,
		&verification.Decision,
		&reason,
		&verification.DecidedBy,
		&verification.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan verification: %w", err)
	}
	if reason != nil {
		verification.Reason = *reason
	}
	return &verification, nil
}

func (r *VerificationRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
