package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrContactNotFound = errors.New("contact not found")

// DirectoryRepository resolves the contact email for a company or event so
// job payloads can embed the recipient at enqueue time.
type DirectoryRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *DirectoryRepository) ContactEmail(ctx context.Context, tenantID, entityType, entityID string) (string, error) {
	var query string
	switch entityType {
	case "company":
		query = `SELECT contact_email FROM companies WHERE tenant_id = $1 AND id = $2`
	case "event":
		query = `SELECT contact_email FROM events WHERE tenant_id = $1 AND id = $2`
	default:
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}

	var email string
	if err := r.queryer().QueryRow(ctx, query, tenantID, entityID).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrContactNotFound
		}
		return "", fmt.Errorf("lookup contact email: %w", err)
	}
	return email, nil
}

func (r *DirectoryRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
