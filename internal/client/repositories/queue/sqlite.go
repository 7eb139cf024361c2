package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avoskres/loankeeper/internal/client/models"
	"github.com/avoskres/loankeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, kind models.ActionKind, table models.Table, payload []byte) (string, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	query := `INSERT INTO pending_actions (id, kind, collection, payload, created_at, synced, last_error)
			VALUES (?, ?, ?, ?, ?, 0, '')`
	_, err := r.db.ExecContext(ctx, query, id, string(kind), table.String(), string(payload), createdAt)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue action: %w", err)
	}
	return id, nil
}

// selectColumns is shared by List and ListPending. Ordering is by creation
// timestamp with rowid as the tiebreaker, so same-instant enqueues keep
// their insertion order.
const selectColumns = `SELECT id, kind, collection, payload, created_at, synced, last_error FROM pending_actions`

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.Action, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE synced = 0 ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending actions: %w", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Action, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select actions: %w", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	query := `UPDATE pending_actions SET synced = 1, last_error = '' WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark action synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetError(ctx context.Context, id, message string) error {
	query := `UPDATE pending_actions SET last_error = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, message, id); err != nil {
		return fmt.Errorf("failed to record action error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove action: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_actions WHERE synced = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending actions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	query := `SELECT
			COUNT(CASE WHEN synced = 0 THEN 1 END),
			COUNT(CASE WHEN synced = 0 AND last_error != '' THEN 1 END),
			COUNT(CASE WHEN synced = 1 THEN 1 END)
		FROM pending_actions`
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.Pending, &s.Failed, &s.Synced); err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate queue stats: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) PruneSynced(ctx context.Context, before string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE synced = 1 AND created_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune synced actions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanActions(rows *sql.Rows) ([]*models.Action, error) {
	var result []*models.Action
	for rows.Next() {
		var (
			a         models.Action
			kind      string
			table     string
			payload   string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &kind, &table, &payload, &createdAt, &a.Synced, &a.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan action row: %w", err)
		}
		a.Kind = models.ActionKind(kind)
		a.Table = models.Table(table)
		a.Payload = []byte(payload)

		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("bad created_at for action %s: %w", a.ID, err)
		}
		a.CreatedAt = t

		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action rows: %w", err)
	}
	return result, nil
}
