package queue

import (
	"context"

	"github.com/avoskres/loankeeper/internal/client/models"
)

// Stats is the user-visible queue accounting ("N pending, M failed").
type Stats struct {
	Pending int
	Failed  int
	Synced  int
}

type Repository interface {
	// Enqueue assigns the action an id and creation timestamp, persists it
	// unsynced, and returns the id synchronously as a provisional reference.
	Enqueue(ctx context.Context, kind models.ActionKind, table models.Table, payload []byte) (string, error)

	// ListPending returns unsynced actions in FIFO replay order.
	ListPending(ctx context.Context) ([]*models.Action, error)

	// List returns every action, including synced and failed ones.
	List(ctx context.Context) ([]*models.Action, error)

	// MarkSynced flags one action as successfully replayed and clears any
	// recorded error.
	MarkSynced(ctx context.Context, id string) error

	// SetError records a replay failure on the action, leaving it queued.
	SetError(ctx context.Context, id, message string) error

	// Remove deletes one action (confirmed sync cleanup or user discard).
	Remove(ctx context.Context, id string) error

	// CountPending returns the number of unsynced actions.
	CountPending(ctx context.Context) (int, error)

	// GetStats aggregates queue accounting.
	GetStats(ctx context.Context) (Stats, error)

	// PruneSynced removes synced actions older than the retention cutoff,
	// keeping the reserved collection bounded. Returns the rows removed.
	PruneSynced(ctx context.Context, before string) (int, error)
}
