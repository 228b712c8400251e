package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorhub/server/internal/audit"
	"github.com/sponsorhub/server/internal/domain/proposals"
	"github.com/sponsorhub/server/internal/domain/users"
	"github.com/sponsorhub/server/internal/domain/verifications"
	"github.com/sponsorhub/server/internal/storage"
)

type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Proposals() proposals.Repository {
	return &ProposalRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Verifications() verifications.Repository {
	return &VerificationRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Users() users.Repository {
	return &UserRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Audit() audit.Store {
	return &AuditRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Directory() storage.DirectoryRepository {
	return &DirectoryRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &Repository{pool: r.pool, tx: tx}
	if err := fn(ctx, wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// queryer abstracts over pool and transaction execution.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
