package storage

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/audit"
	"github.com/sponsorhub/server/internal/domain/proposals"
	"github.com/sponsorhub/server/internal/domain/verifications"
)

// ProposalsUnit adapts Repository.WithTx to the proposals unit-of-work
// contract: the proposal mutation and its audit append run against the same
// transaction and commit or roll back together.
type ProposalsUnit struct {
	repo   Repository
	logger zerolog.Logger
}

func NewProposalsUnit(repo Repository, logger zerolog.Logger) *ProposalsUnit {
	return &ProposalsUnit{repo: repo, logger: logger}
}

func (u *ProposalsUnit) InTx(ctx context.Context, fn func(ctx context.Context, repo proposals.Repository, recorder *audit.Recorder) error) error {
	return u.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		return fn(ctx, tx.Proposals(), audit.NewRecorder(tx.Audit(), u.logger))
	})
}

// VerificationsUnit is the verifications counterpart of ProposalsUnit.
type VerificationsUnit struct {
	repo   Repository
	logger zerolog.Logger
}

func NewVerificationsUnit(repo Repository, logger zerolog.Logger) *VerificationsUnit {
	return &VerificationsUnit{repo: repo, logger: logger}
}

func (u *VerificationsUnit) InTx(ctx context.Context, fn func(ctx context.Context, repo verifications.Repository, recorder *audit.Recorder) error) error {
	return u.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		return fn(ctx, tx.Verifications(), audit.NewRecorder(tx.Audit(), u.logger))
	})
}
