// Package storage opens the local client database and wires the
// SQLite-backed repositories together.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/avoskres/loankeeper/internal/client/migrations"
	"github.com/avoskres/loankeeper/internal/client/models"
	"github.com/avoskres/loankeeper/internal/client/repositories/metadata"
	"github.com/avoskres/loankeeper/internal/client/repositories/queue"
	"github.com/avoskres/loankeeper/internal/client/repositories/records"
	"github.com/avoskres/loankeeper/internal/common"
)

// Repositories bundles the local persistence layer handed to services.
// DB is exposed so the sync engine can run multi-statement work in one
// transaction via dbx.WithTx.
type Repositories struct {
	DB       *sql.DB
	Records  records.Repository
	Metadata metadata.Repository
	Queue    queue.Repository
}

// RunMigrations applies the embedded goose migrations. Safe to run on every
// open: goose tracks the applied version, so existing collections are kept
// and new ones are created on a version bump.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the local database at dsn and
// migrates it to the current schema version. Opening is idempotent.
// Failures wrap common.ErrStorageUnavailable so callers can degrade to
// remote-only operation.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	// sql.Open defers real work; probe before migrating
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	return &Repositories{
		DB:       db,
		Records:  records.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
		Queue:    queue.NewSQLiteRepository(db),
	}, nil
}

// ClearCache wipes every managed collection and all sync bookkeeping.
// The mutation queue is left untouched: pending work is only discarded
// explicitly, per action.
func (r *Repositories) ClearCache(ctx context.Context) error {
	for _, table := range models.ManagedTables() {
		if err := r.Records.DeleteAll(ctx, table); err != nil {
			return err
		}
	}
	return r.Metadata.Clear(ctx)
}

// Close releases the underlying database handle.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

// PruneQueue removes synced queue entries older than the retention window.
func (r *Repositories) PruneQueue(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	return r.Queue.PruneSynced(ctx, cutoff)
}
