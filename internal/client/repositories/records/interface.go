package records

import (
	"context"

	"github.com/avoskres/loankeeper/internal/client/models"
)

// Repository describes the local store operations over record envelopes.
// Implementations are typically backed by the local SQLite database.
type Repository interface {
	// Put upserts one envelope by (collection, id), overwriting any existing
	// envelope entirely.
	Put(ctx context.Context, env *models.Envelope) error

	// PutBatch upserts several envelopes.
	PutBatch(ctx context.Context, envs []*models.Envelope) error

	// GetAll returns every envelope in a collection.
	GetAll(ctx context.Context, table models.Table) ([]*models.Envelope, error)

	// GetByID returns one envelope, or common.ErrorNotFound.
	GetByID(ctx context.Context, table models.Table, id string) (*models.Envelope, error)

	// GetUnsynced returns the envelopes whose latest state has not been
	// confirmed written to the remote.
	GetUnsynced(ctx context.Context, table models.Table) ([]*models.Envelope, error)

	// MarkSynced flips the synced flag for one record. No-op if absent.
	MarkSynced(ctx context.Context, table models.Table, id string) error

	// Delete removes one envelope. No-op if absent.
	Delete(ctx context.Context, table models.Table, id string) error

	// DeleteAll clears a collection (full download and cache reset paths).
	DeleteAll(ctx context.Context, table models.Table) error

	// Count returns the number of envelopes in a collection.
	Count(ctx context.Context, table models.Table) (int, error)
}
