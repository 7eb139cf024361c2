package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avoskres/loankeeper/internal/client/models"
	"github.com/avoskres/loankeeper/internal/client/remote"
	"github.com/avoskres/loankeeper/internal/client/repositories/metadata"
	"github.com/avoskres/loankeeper/internal/client/repositories/queue"
	"github.com/avoskres/loankeeper/internal/client/repositories/records"
	"github.com/avoskres/loankeeper/internal/client/storage"
	"github.com/avoskres/loankeeper/internal/common"
	"github.com/avoskres/loankeeper/internal/dbx"
	"github.com/avoskres/loankeeper/internal/logging"
)

const (
	// incrementalPullLimit bounds one incremental pull page.
	incrementalPullLimit = 100

	// fullDownloadLimit bounds a per-table full refresh.
	fullDownloadLimit = 1000
)

// SyncResult is the structured outcome of a sync operation. Per-item
// failures are aggregated here rather than aborting sibling items, so the
// caller can show partial progress.
type SyncResult struct {
	Success bool
	Synced  int
	Errors  int
	Message string
}

func (r *SyncResult) add(other SyncResult) {
	r.Synced += other.Synced
	r.Errors += other.Errors
	if other.Message != "" {
		if r.Message != "" {
			r.Message += "; "
		}
		r.Message += other.Message
	}
	r.Success = r.Errors == 0
}

// SyncEngine reconciles the local store with the remote system of record:
// it drains the offline mutation queue, pulls incremental changes and can
// rebuild collections with a full download.
//
// Overlapping triggers (periodic timer, online transition, manual sync)
// serialize on internal locks, so a pending action is never replayed twice
// concurrently.
type SyncEngine struct {
	remote remote.Client
	repos  *storage.Repositories
	log    logging.Logger

	// now is a seam for tests asserting timestamp advancement.
	now func() time.Time

	drainMu sync.Mutex
	tableMu map[models.Table]*sync.Mutex
}

func NewSyncEngine(rc remote.Client, repos *storage.Repositories, log logging.Logger) *SyncEngine {
	locks := make(map[models.Table]*sync.Mutex, len(models.ManagedTables()))
	for _, t := range models.ManagedTables() {
		locks[t] = &sync.Mutex{}
	}
	return &SyncEngine{
		remote:  rc,
		repos:   repos,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		tableMu: locks,
	}
}

// pushRecord writes one record to the remote, updating when it already
// exists and inserting otherwise. Both queue replay and the push phase of
// SyncTable go through here, so replaying an action whose record already
// reached the server stays idempotent.
func (e *SyncEngine) pushRecord(ctx context.Context, table models.Table, id string, payload []byte) error {
	exists, err := e.remote.Exists(ctx, table.Endpoint(), id)
	if err != nil {
		return err
	}
	if exists {
		return e.remote.Update(ctx, table.Endpoint(), id, payload)
	}
	return e.remote.Insert(ctx, table.Endpoint(), payload)
}

// DrainQueue replays all pending offline actions in FIFO creation order.
// One failure never aborts the batch: the action keeps its error and stays
// queued for the next trigger.
func (e *SyncEngine) DrainQueue(ctx context.Context) (SyncResult, error) {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	actions, err := e.repos.Queue.ListPending(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("listing pending actions: %w", err)
	}

	var result SyncResult
	for _, a := range actions {
		if err := e.applyAction(ctx, a); err != nil {
			result.Errors++
			if qErr := e.repos.Queue.SetError(ctx, a.ID, err.Error()); qErr != nil {
				e.log.Error(ctx, "failed to record action error", "action", a.ID, "error", qErr)
			}
			e.log.Warn(ctx, "queued action failed", "action", a.ID, "table", a.Table, "error", err)
			continue
		}
		result.Synced++
	}

	result.Success = result.Errors == 0
	if result.Errors > 0 {
		result.Message = fmt.Sprintf("%d queued action(s) failed", result.Errors)
	}
	e.log.Info(ctx, "queue drained", "synced", result.Synced, "errors", result.Errors)
	return result, nil
}

func (e *SyncEngine) applyAction(ctx context.Context, a *models.Action) error {
	id, err := a.TargetID()
	if err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}

	if err := e.pushRecord(ctx, a.Table, id, a.Payload); err != nil {
		return err
	}

	if err := e.repos.Queue.MarkSynced(ctx, a.ID); err != nil {
		return err
	}

	// Flip the cached record only when this action carried its current
	// state. A later queued edit leaves the envelope holding newer data;
	// flagging it synced here would let a pull clobber that edit if the
	// later action's replay fails.
	env, err := e.repos.Records.GetByID(ctx, a.Table, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// deleted locally after enqueue
			return nil
		}
		return err
	}
	if !bytes.Equal(env.Data, a.Payload) {
		return nil
	}
	return e.repos.Records.MarkSynced(ctx, a.Table, id)
}

// SyncTable reconciles one collection in two phases: local unsynced records
// are pushed first, then remote changes since the last recorded sync are
// pulled. The order is load-bearing: pulling first could overwrite an
// unsynced local edit with stale server state.
func (e *SyncEngine) SyncTable(ctx context.Context, table models.Table) (SyncResult, error) {
	mu, ok := e.tableMu[table]
	if !ok {
		return SyncResult{}, fmt.Errorf("sync %s: not a managed table", table)
	}
	mu.Lock()
	defer mu.Unlock()

	var result SyncResult

	// phase 1: push
	unsynced, err := e.repos.Records.GetUnsynced(ctx, table)
	if err != nil {
		return result, fmt.Errorf("sync %s: reading unsynced records: %w", table, err)
	}
	for _, env := range unsynced {
		if err := e.pushRecord(ctx, table, env.ID, env.Data); err != nil {
			result.Errors++
			e.log.Warn(ctx, "push failed", "table", table, "id", env.ID, "error", err)
			continue
		}
		if err := e.repos.Records.MarkSynced(ctx, table, env.ID); err != nil {
			result.Errors++
			continue
		}
		result.Synced++
	}

	// phase 2: pull
	since, err := e.repos.Metadata.GetTime(ctx, metadata.LastSyncKey(table))
	if err != nil {
		return result, fmt.Errorf("sync %s: reading last sync: %w", table, err)
	}

	fetchedAt := e.now()
	rows, err := e.remote.Select(ctx, table.Endpoint(), since, incrementalPullLimit)
	if err != nil {
		result.Success = false
		result.Message = fmt.Sprintf("pull %s failed", table)
		return result, fmt.Errorf("sync %s: pull: %w", table, err)
	}

	for _, row := range rows {
		env, err := models.NewEnvelope(table, row, true)
		if err != nil {
			result.Errors++
			e.log.Warn(ctx, "skipping malformed remote row", "table", table, "error", err)
			continue
		}
		// an unsynced local copy is a provisional edit whose push failed
		// above; keep it until a replay lands it on the server
		if current, err := e.repos.Records.GetByID(ctx, table, env.ID); err == nil && !current.Synced {
			continue
		}
		if err := e.repos.Records.Put(ctx, env); err != nil {
			result.Errors++
			continue
		}
		result.Synced++
	}

	// advance the lower bound to the client clock at fetch time, forward
	// only; a crash before this line just re-fetches already-applied rows
	if fetchedAt.After(since) {
		if err := e.repos.Metadata.SetTime(ctx, metadata.LastSyncKey(table), fetchedAt); err != nil {
			return result, fmt.Errorf("sync %s: advancing last sync: %w", table, err)
		}
	}

	result.Success = result.Errors == 0
	if result.Errors > 0 {
		result.Message = fmt.Sprintf("%s: %d record(s) failed", table, result.Errors)
	}
	e.log.Info(ctx, "table synced", "table", table, "synced", result.Synced, "errors", result.Errors)
	return result, nil
}

// DownloadAll rebuilds every managed collection from the remote, ignoring
// incremental timestamps. Each collection is replaced in one transaction;
// a failure aborts that table and propagates, but tables already written
// stay committed.
func (e *SyncEngine) DownloadAll(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	for _, table := range models.ManagedTables() {
		n, err := e.downloadTable(ctx, table)
		if err != nil {
			result.Success = false
			result.Message = fmt.Sprintf("download %s failed", table)
			return result, err
		}
		result.Synced += n
	}

	if err := e.repos.Metadata.SetTime(ctx, metadata.LastFullSyncKey, e.now()); err != nil {
		return result, fmt.Errorf("stamping full sync: %w", err)
	}

	result.Success = true
	e.log.Info(ctx, "full download complete", "records", result.Synced)
	return result, nil
}

func (e *SyncEngine) downloadTable(ctx context.Context, table models.Table) (int, error) {
	mu := e.tableMu[table]
	mu.Lock()
	defer mu.Unlock()

	fetchedAt := e.now()
	rows, err := e.remote.Select(ctx, table.Endpoint(), time.Time{}, fullDownloadLimit)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", table, err)
	}

	envs := make([]*models.Envelope, 0, len(rows))
	for _, row := range rows {
		env, err := models.NewEnvelope(table, row, true)
		if err != nil {
			return 0, fmt.Errorf("download %s: malformed row: %w", table, err)
		}
		envs = append(envs, env)
	}

	err = dbx.WithTx(ctx, e.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := records.NewSQLiteRepository(tx)
		if err := repo.DeleteAll(ctx, table); err != nil {
			return err
		}
		return repo.PutBatch(ctx, envs)
	})
	if err != nil {
		return 0, fmt.Errorf("download %s: replacing collection: %w", table, err)
	}

	if err := e.repos.Metadata.SetTime(ctx, metadata.LastSyncKey(table), fetchedAt); err != nil {
		return 0, fmt.Errorf("download %s: stamping sync time: %w", table, err)
	}
	return len(envs), nil
}

// SyncAll drains the queue and then incrementally syncs every managed
// table, accumulating totals and per-table error messages.
func (e *SyncEngine) SyncAll(ctx context.Context) (SyncResult, error) {
	result, err := e.DrainQueue(ctx)
	if err != nil {
		return result, err
	}

	var failures []string
	for _, table := range models.ManagedTables() {
		r, err := e.SyncTable(ctx, table)
		result.add(r)
		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	if len(failures) > 0 {
		if result.Message != "" {
			result.Message += "; "
		}
		result.Message += strings.Join(failures, "; ")
		result.Success = false
	}
	return result, nil
}

// QueueStats exposes the pending/failed accounting for the UI.
func (e *SyncEngine) QueueStats(ctx context.Context) (queue.Stats, error) {
	return e.repos.Queue.GetStats(ctx)
}
