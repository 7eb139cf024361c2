package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avoskres/loankeeper/internal/client/models"
	"github.com/avoskres/loankeeper/internal/common"
	"github.com/avoskres/loankeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

func (r *SQLiteRepository) Put(ctx context.Context, env *models.Envelope) error {
	query := `INSERT INTO records (collection, id, data, synced, stored_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET
				data = excluded.data,
				synced = excluded.synced,
				stored_at = excluded.stored_at,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		env.Table.String(), env.ID, string(env.Data), env.Synced,
		encodeTime(env.StoredAt), encodeTime(env.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PutBatch(ctx context.Context, envs []*models.Envelope) error {
	for _, env := range envs {
		if err := r.Put(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, table models.Table) ([]*models.Envelope, error) {
	query := `SELECT id, data, synced, stored_at, updated_at FROM records WHERE collection = ?`
	rows, err := r.db.QueryContext(ctx, query, table.String())
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	return scanEnvelopes(rows, table)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, table models.Table, id string) (*models.Envelope, error) {
	query := `SELECT id, data, synced, stored_at, updated_at FROM records WHERE collection = ? AND id = ?`
	env, err := scanEnvelope(r.db.QueryRowContext(ctx, query, table.String(), id), table)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return env, nil
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, table models.Table) ([]*models.Envelope, error) {
	query := `SELECT id, data, synced, stored_at, updated_at FROM records WHERE collection = ? AND synced = 0`
	rows, err := r.db.QueryContext(ctx, query, table.String())
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced records: %w", err)
	}
	defer rows.Close()

	return scanEnvelopes(rows, table)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, table models.Table, id string) error {
	query := `UPDATE records SET synced = 1 WHERE collection = ? AND id = ?`
	if _, err := r.db.ExecContext(ctx, query, table.String(), id); err != nil {
		return fmt.Errorf("failed to mark record synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, table models.Table, id string) error {
	query := `DELETE FROM records WHERE collection = ? AND id = ?`
	if _, err := r.db.ExecContext(ctx, query, table.String(), id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context, table models.Table) error {
	query := `DELETE FROM records WHERE collection = ?`
	if _, err := r.db.ExecContext(ctx, query, table.String()); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context, table models.Table) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, table.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(row rowScanner, table models.Table) (*models.Envelope, error) {
	var (
		env      models.Envelope
		data     string
		storedAt string
		updated  string
	)
	if err := row.Scan(&env.ID, &data, &env.Synced, &storedAt, &updated); err != nil {
		return nil, err
	}
	env.Table = table
	env.Data = json.RawMessage(data)

	var err error
	if env.StoredAt, err = decodeTime(storedAt); err != nil {
		return nil, fmt.Errorf("bad stored_at for %s/%s: %w", table, env.ID, err)
	}
	if env.UpdatedAt, err = decodeTime(updated); err != nil {
		return nil, fmt.Errorf("bad updated_at for %s/%s: %w", table, env.ID, err)
	}
	return &env, nil
}

func scanEnvelopes(rows *sql.Rows, table models.Table) ([]*models.Envelope, error) {
	var result []*models.Envelope
	for rows.Next() {
		env, err := scanEnvelope(rows, table)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		result = append(result, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate record rows: %w", err)
	}
	return result, nil
}
