// Package metadata persists small key-value sync bookkeeping: per-table
// last-sync timestamps and the global last-full-sync marker.
package metadata

import (
	"context"
	"time"

	"github.com/avoskres/loankeeper/internal/client/models"
)

// LastSyncKey returns the metadata key holding a table's incremental pull
// lower bound.
func LastSyncKey(table models.Table) string {
	return "last_sync_" + table.String()
}

// LastFullSyncKey is the metadata key stamped after a full download.
const LastFullSyncKey = "last_full_sync"

type Repository interface {
	// Get returns the raw value for key, or "" when absent.
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key, value string) error

	// GetTime parses the stored value as RFC3339Nano. Absent keys yield the
	// zero time, the default lower bound for a first incremental pull.
	GetTime(ctx context.Context, key string) (time.Time, error)

	SetTime(ctx context.Context, key string, t time.Time) error

	Delete(ctx context.Context, key string) error

	Clear(ctx context.Context) error
}
