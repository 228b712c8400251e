package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorhub/server/internal/domain/proposals"
)

type ProposalRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *ProposalRepository) Create(ctx context.Context, proposal proposals.Proposal) (*proposals.Proposal, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO proposals (id, tenant_id, company_id, event_id, title, amount_cents, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, tenant_id, company_id, event_id, title, amount_cents, status, created_at, updated_at
`, proposal.ID, proposal.TenantID, proposal.CompanyID, proposal.EventID, proposal.Title, proposal.AmountCents, proposal.Status)

	return scanProposal(row)
}

func (r *ProposalRepository) GetByID(ctx context.Context, tenantID, id string) (*proposals.Proposal, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, tenant_id, company_id, event_id, title, amount_cents, status, created_at, updated_at
  FROM proposals
 WHERE tenant_id = $1 AND id = $2
`, tenantID, id)

	proposal, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, proposals.ErrNotFound
		}
		return nil, err
	}
	return proposal, nil
}

// UpdateStatus applies the transition conditionally on the current status so
// two concurrent transitions cannot both win.
func (r *ProposalRepository) UpdateStatus(ctx context.Context, tenantID, id string, from, to proposals.Status) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE proposals
   SET status = $1, updated_at = now()
 WHERE tenant_id = $2 AND id = $3 AND status = $4
`, to, tenantID, id, from)
	if err != nil {
		return fmt.Errorf("update proposal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.queryer().QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM proposals WHERE tenant_id = $1 AND id = $2)`,
			tenantID, id,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check proposal existence: %w", err)
		}
		if !exists {
			return proposals.ErrNotFound
		}
		return proposals.ErrStaleStatus
	}
	return nil
}

func (r *ProposalRepository) List(ctx context.Context, tenantID string, filters proposals.Filters, pagination proposals.Pagination) ([]proposals.Proposal, int64, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}

	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.CompanyID != "" {
		args = append(args, filters.CompanyID)
		where = append(where, fmt.Sprintf("company_id = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT count(*) FROM proposals WHERE %s`, clause)
	if err := r.queryer().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count proposals: %w", err)
	}

	args = append(args, pagination.Limit, pagination.Offset)
	listQuery := fmt.Sprintf(`
SELECT id, tenant_id, company_id, event_id, title, amount_cents, status, created_at, updated_at
  FROM proposals
 WHERE %s
 ORDER BY created_at DESC, id DESC
 LIMIT $%d OFFSET $%d
`, clause, len(args)-1, len(args))

	rows, err := r.queryer().Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var result []proposals.Proposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate proposals: %w", err)
	}
	return result, total, nil
}

func scanProposal(row pgx.Row) (*proposals.Proposal, error) {
	var proposal proposals.Proposal
	var eventID *string
	if err := row.Scan(
		&proposal.ID,
		&proposal.TenantID,
		&proposal.CompanyID,
		&eventID,
		&proposal.Title,
		&proposal.AmountCents,
		&proposal.Status,
		&proposal.CreatedAt,
		&proposal.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan proposal: %w", err)
	}
	if eventID != nil {
		proposal.EventID = *eventID
	}
	return &proposal, nil
}

func (r *ProposalRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
