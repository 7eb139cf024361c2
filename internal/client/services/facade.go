package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avoskres/loankeeper/internal/client/models"
	"github.com/avoskres/loankeeper/internal/client/remote"
	"github.com/avoskres/loankeeper/internal/client/repositories/queue"
	"github.com/avoskres/loankeeper/internal/client/repositories/records"
	"github.com/avoskres/loankeeper/internal/client/storage"
	"github.com/avoskres/loankeeper/internal/dbx"
	"github.com/avoskres/loankeeper/internal/logging"
)

// onlineOnlyOps are operations that must never be queued offline: they need
// server-side authority checks that cannot be deferred.
var onlineOnlyOps = map[string]struct{}{
	"approve_loan":  {},
	"disburse_loan": {},
	"delete_client": {},
	"manage_users":  {},
}

// RequiresOnline reports whether an operation may only run with live
// connectivity.
func RequiresOnline(operation string) bool {
	_, ok := onlineOnlyOps[operation]
	return ok
}

// DataServiceOptions configures one facade instance.
type DataServiceOptions struct {
	// AutoSync enables the periodic background sync loop.
	AutoSync bool
	// SyncInterval is the period between background syncs while online.
	SyncInterval time.Duration
}

// DataService is the per-collection read/write surface consumed by the UI:
// reads come from the local store, writes go local-first through the
// offline queue, and synchronization happens in the background. It never
// blocks a read on the network.
type DataService struct {
	table   models.Table
	engine  *SyncEngine
	repos   *storage.Repositories
	remote  remote.Client
	monitor *Monitor
	log     logging.Logger
	opts    DataServiceOptions

	mu         sync.Mutex
	running    bool
	registered bool
	stopCh     chan struct{}
}

func NewDataService(table models.Table, engine *SyncEngine, repos *storage.Repositories,
	rc remote.Client, monitor *Monitor, log logging.Logger, opts DataServiceOptions) *DataService {

	if opts.SyncInterval <= 0 {
		opts.SyncInterval = 5 * time.Minute
	}
	return &DataService{
		table:   table,
		engine:  engine,
		repos:   repos,
		remote:  rc,
		monitor: monitor,
		log:     log.With("table", table.String()),
		opts:    opts,
	}
}

// Fetch returns the collection's records. When forceOnline is set and the
// device is online, the remote is read through and the cache overwritten;
// otherwise the cache is served, seeded from the remote one-shot if empty,
// with a fire-and-forget background sync when it is warm.
func (s *DataService) Fetch(ctx context.Context, forceOnline bool) ([]json.RawMessage, error) {
	online := s.monitor.IsOnline()

	if forceOnline && online {
		if _, err := s.engine.downloadTable(ctx, s.table); err != nil {
			return nil, err
		}
		return s.cached(ctx)
	}

	data, err := s.cached(ctx)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 && online {
		// empty cache: one blocking full fetch to seed it. A full download
		// is bounded higher than an incremental pull page, so a large table
		// is not truncated to the newest page on first contact.
		if _, err := s.engine.downloadTable(ctx, s.table); err != nil {
			return nil, err
		}
		return s.cached(ctx)
	}

	if online {
		// warm cache: serve stale data now, reconcile in the background
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := s.engine.SyncTable(bgCtx, s.table); err != nil {
				s.log.Warn(bgCtx, "background sync failed", "error", err)
			}
		}()
	}

	return data, nil
}

func (s *DataService) cached(ctx context.Context) ([]json.RawMessage, error) {
	envs, err := s.repos.Records.GetAll(ctx, s.table)
	if err != nil {
		return nil, err
	}
	data := make([]json.RawMessage, 0, len(envs))
	for _, env := range envs {
		data = append(data, env.Data)
	}
	return data, nil
}

// Add stores a new record local-first and queues its creation for replay.
// The record id is generated on the client when absent, so later queued
// updates can reference it without remapping, and is returned immediately
// as the caller's provisional reference.
func (s *DataService) Add(ctx context.Context, record any) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}

	id, payload, err := ensureRecordID(payload)
	if err != nil {
		return "", err
	}

	if err := s.writeLocal(ctx, payload, models.ActionCreate); err != nil {
		return "", err
	}

	s.kickDrain()
	return id, nil
}

// Update rewrites a record local-first and queues the change. The payload
// must carry the target id.
func (s *DataService) Update(ctx context.Context, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	id, err := models.RecordID(payload)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("update requires a record id")
	}

	if err := s.writeLocal(ctx, payload, models.ActionUpdate); err != nil {
		return err
	}

	s.kickDrain()
	return nil
}

// writeLocal persists the unsynced envelope and the queued action together,
// so a crash cannot leave a cached edit with no replay entry.
func (s *DataService) writeLocal(ctx context.Context, payload json.RawMessage, kind models.ActionKind) error {
	env, err := models.NewEnvelope(s.table, payload, false)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := records.NewSQLiteRepository(tx).Put(ctx, env); err != nil {
			return err
		}
		_, err := queue.NewSQLiteRepository(tx).Enqueue(ctx, kind, s.table, payload)
		return err
	})
}

// Remove drops a record from the local cache only; it does not touch the
// remote or the queue.
func (s *DataService) Remove(ctx context.Context, id string) error {
	return s.repos.Records.Delete(ctx, s.table, id)
}

// kickDrain replays the queue in the background when online. Errors stay on
// the queued actions; nothing is thrown at the caller.
func (s *DataService) kickDrain() {
	if !s.monitor.IsOnline() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.engine.DrainQueue(ctx); err != nil {
			s.log.Warn(ctx, "background drain failed", "error", err)
		}
	}()
}

// PendingCount returns the number of queued actions awaiting replay.
func (s *DataService) PendingCount(ctx context.Context) (int, error) {
	return s.repos.Queue.CountPending(ctx)
}

// Stats returns the queue accounting for the "N pending, M failed" signal.
func (s *DataService) Stats(ctx context.Context) (queue.Stats, error) {
	return s.repos.Queue.GetStats(ctx)
}

// Start launches the background sync lifecycle: an immediate drain-and-sync
// on every offline→online transition, plus a periodic sync while online
// when AutoSync is enabled. Calling Start twice does not create duplicate
// tickers.
func (s *DataService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	register := !s.registered
	s.registered = true
	s.mu.Unlock()

	// the monitor keeps handlers for its lifetime, so register exactly once
	// however many Stop/Start cycles this facade goes through
	if register {
		s.monitor.OnOnline(func(ctx context.Context) {
			s.syncOnce(ctx)
		})
	}

	if !s.opts.AutoSync {
		return
	}

	go func() {
		ticker := time.NewTicker(s.opts.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !s.monitor.IsOnline() {
					continue
				}
				tickCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				s.syncOnce(tickCtx)
				cancel()
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the periodic sync loop.
func (s *DataService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

func (s *DataService) syncOnce(ctx context.Context) {
	if _, err := s.engine.DrainQueue(ctx); err != nil {
		s.log.Warn(ctx, "drain failed", "error", err)
	}
	if _, err := s.engine.SyncTable(ctx, s.table); err != nil {
		s.log.Warn(ctx, "sync failed", "error", err)
	}
}

// ensureRecordID guarantees the payload carries an id, generating a UUID
// when absent.
func ensureRecordID(payload json.RawMessage) (string, json.RawMessage, error) {
	id, err := models.RecordID(payload)
	if err != nil {
		return "", nil, err
	}
	if id != "" {
		return id, payload, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", nil, err
	}
	id = uuid.NewString()
	fields["id"] = id

	updated, err := json.Marshal(fields)
	if err != nil {
		return "", nil, err
	}
	return id, updated, nil
}
