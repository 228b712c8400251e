package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorhub/server/internal/audit"
)

// AuditRepository persists audit log entries. The table is append-only: this
// type deliberately has no update or delete methods, and none exist in SQL.
type AuditRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("marshal audit metadata: %w", err)
	}

	_, err = r.queryer().Exec(ctx, `
INSERT INTO audit_log (id, tenant_id, actor_id, actor_role, action, entity_type, entity_id, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, entry.ID, entry.TenantID, entry.ActorID, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, metadata, entry.CreatedAt)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

func (r *AuditRepository) Query(ctx context.Context, tenantID string, filters audit.Filters, pagination audit.Pagination) ([]audit.Entry, int64, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}

	if filters.Action != "" {
		args = append(args, filters.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if filters.EntityType != "" {
		args = append(args, filters.EntityType)
		where = append(where, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if filters.ActorID != "" {
		args = append(args, filters.ActorID)
		where = append(where, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT count(*) FROM audit_log WHERE %s`, clause)
	if err := r.queryer().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	args = append(args, pagination.Limit, pagination.Offset)
	listQuery := fmt.Sprintf(`
SELECT id, tenant_id, actor_id, actor_role, action, entity_type, entity_id, metadata, created_at
  FROM audit_log
 WHERE %s
 ORDER BY created_at DESC, id DESC
 LIMIT $%d OFFSET $%d
`, clause, len(args)-1, len(args))

	rows, err := r.queryer().Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanAuditEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *AuditRepository) History(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, tenant_id, actor_id, actor_role, action, entity_type, entity_id, metadata, created_at
  FROM audit_log
 WHERE entity_type = $1 AND entity_id = $2
 ORDER BY created_at DESC, id DESC
`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	return scanAuditEntries(rows)
}

func scanAuditEntries(rows pgx.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var metadata []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&metadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func (r *AuditRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
