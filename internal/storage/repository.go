package storage

import (
	"context"

	"github.com/sponsorhub/server/internal/audit"
	"github.com/sponsorhub/server/internal/domain/proposals"
	"github.com/sponsorhub/server/internal/domain/users"
	"github.com/sponsorhub/server/internal/domain/verifications"
)

// Repository groups data access by domain.
type Repository interface {
	Proposals() proposals.Repository
	Verifications() verifications.Repository
	Users() users.Repository
	Audit() audit.Store
	Directory() DirectoryRepository

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

// DirectoryRepository resolves contact addresses for companies and events.
type DirectoryRepository interface {
	ContactEmail(ctx context.Context, tenantID, entityType, entityID string) (string, error)
}
