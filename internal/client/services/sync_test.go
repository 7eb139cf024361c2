package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskres/loankeeper/internal/client/models"
	"github.com/avoskres/loankeeper/internal/client/remote"
	"github.com/avoskres/loankeeper/internal/client/repositories/metadata"
	"github.com/avoskres/loankeeper/internal/client/storage"
	"github.com/avoskres/loankeeper/internal/logging"
)

func setupEngine(t *testing.T) (*SyncEngine, *fakeRemote, *storage.Repositories) {
	t.Helper()
	repos, err := storage.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	fake := newFakeRemote()
	engine := NewSyncEngine(fake, repos, logging.NewDefault())
	return engine, fake, repos
}

func enqueue(t *testing.T, repos *storage.Repositories, kind models.ActionKind, table models.Table, payload string) string {
	t.Helper()
	id, err := repos.Queue.Enqueue(context.Background(), kind, table, []byte(payload))
	require.NoError(t, err)
	return id
}

func TestDrainQueue_FIFODependencyChain(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	// a create followed by an update referencing the created record: the
	// create must land first or the update has nothing to write to
	enqueue(t, repos, models.ActionCreate, models.TableLoans, `{"id":"l-1","client_id":"c-1","amount":500}`)
	enqueue(t, repos, models.ActionUpdate, models.TableLoans, `{"id":"l-1","client_id":"c-1","amount":500,"status":"active"}`)

	result, err := engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Synced)
	assert.Zero(t, result.Errors)

	got := fake.get("loans", "l-1")
	require.NotNil(t, got)
	assert.Equal(t, "active", got["status"])

	pending, err := repos.Queue.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestDrainQueue_IdempotentReplay(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	enqueue(t, repos, models.ActionCreate, models.TablePayments, `{"id":"p-1","loan_id":"l-1","amount":25}`)
	enqueue(t, repos, models.ActionCreate, models.TablePayments, `{"id":"p-2","loan_id":"l-1","amount":30}`)

	_, err := engine.DrainQueue(ctx)
	require.NoError(t, err)
	writes := fake.writeCount()

	// every action already synced: a second drain must not touch the remote
	result, err := engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Synced)
	assert.Equal(t, writes, fake.writeCount())
}

func TestDrainQueue_PartialFailureAccounting(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	enqueue(t, repos, models.ActionCreate, models.TableClients, `{"id":"c-1","full_name":"A"}`)
	badID := enqueue(t, repos, models.ActionCreate, models.TableClients, `{"id":"c-2","full_name":"B"}`)
	enqueue(t, repos, models.ActionCreate, models.TableClients, `{"id":"c-3","full_name":"C"}`)

	fake.failIDs["c-2"] = remote.ErrRejected

	result, err := engine.DrainQueue(ctx)
	require.NoError(t, err, "one rejection must not abort the batch")
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Errors)

	stats, err := repos.Queue.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Synced)

	pending, err := repos.Queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, badID, pending[0].ID)
	assert.Contains(t, pending[0].LastError, "rejected")

	// the rejection lifts: the kept action syncs on the next drain
	delete(fake.failIDs, "c-2")
	result, err = engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Synced)
}

func TestDrainQueue_FailedLaterEditStaysUnsynced(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	// the cache holds the latest edit; the queue holds the create with the
	// original value and the update carrying the edit
	env, err := models.NewEnvelope(models.TableClients, json.RawMessage(`{"id":"c-1","full_name":"Edited"}`), false)
	require.NoError(t, err)
	require.NoError(t, repos.Records.Put(ctx, env))
	enqueue(t, repos, models.ActionCreate, models.TableClients, `{"id":"c-1","full_name":"Old"}`)
	enqueue(t, repos, models.ActionUpdate, models.TableClients, `{"id":"c-1","full_name":"Edited"}`)

	// the create lands, the update is rejected
	fake.failUpdates["c-1"] = remote.ErrRejected

	result, err := engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Errors)

	// the edit never reached the remote, so the cached record must not be
	// flagged synced by the create's success
	got, err := repos.Records.GetByID(ctx, models.TableClients, "c-1")
	require.NoError(t, err)
	assert.False(t, got.Synced)
	assert.Contains(t, string(got.Data), "Edited")

	// a sync while the update is still rejected keeps the local edit: the
	// push retries (and fails), and the pull must not resurrect the stale
	// remote value over the provisional copy
	_, err = engine.SyncTable(ctx, models.TableClients)
	require.NoError(t, err)

	got, err = repos.Records.GetByID(ctx, models.TableClients, "c-1")
	require.NoError(t, err)
	assert.False(t, got.Synced)
	assert.Contains(t, string(got.Data), "Edited")

	// the rejection lifts: the queued update replays and everything settles
	delete(fake.failUpdates, "c-1")
	result, err = engine.DrainQueue(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.Equal(t, "Edited", fake.get("clients", "c-1")["full_name"])
	got, err = repos.Records.GetByID(ctx, models.TableClients, "c-1")
	require.NoError(t, err)
	assert.True(t, got.Synced)
}

func TestDrainQueue_MarksLocalRecordSynced(t *testing.T) {
	engine, _, repos := setupEngine(t)
	ctx := context.Background()

	env, err := models.NewEnvelope(models.TablePayments, json.RawMessage(`{"id":"p-1","amount":10}`), false)
	require.NoError(t, err)
	require.NoError(t, repos.Records.Put(ctx, env))
	enqueue(t, repos, models.ActionCreate, models.TablePayments, `{"id":"p-1","amount":10}`)

	_, err = engine.DrainQueue(ctx)
	require.NoError(t, err)

	got, err := repos.Records.GetByID(ctx, models.TablePayments, "p-1")
	require.NoError(t, err)
	assert.True(t, got.Synced)
}

func TestSyncTable_PushBeforePull(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	// remote holds the pre-edit snapshot
	fake.seed("clients", map[string]any{"id": "c-1", "full_name": "Old Name"})

	// local unsynced edit
	env, err := models.NewEnvelope(models.TableClients, json.RawMessage(`{"id":"c-1","full_name":"New Name"}`), false)
	require.NoError(t, err)
	require.NoError(t, repos.Records.Put(ctx, env))

	result, err := engine.SyncTable(ctx, models.TableClients)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// the local edit must have reached the remote before the pull, so the
	// pull can never resurrect the stale value
	assert.Equal(t, "New Name", fake.get("clients", "c-1")["full_name"])

	got, err := repos.Records.GetByID(ctx, models.TableClients, "c-1")
	require.NoError(t, err)
	assert.True(t, got.Synced)
	assert.Contains(t, string(got.Data), "New Name")
}

func TestSyncTable_IncrementalPullMonotonic(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	fake.seed("loans", map[string]any{"id": "l-1", "amount": 100.0})
	fake.seed("loans", map[string]any{"id": "l-2", "amount": 200.0})

	result, err := engine.SyncTable(ctx, models.TableLoans)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)

	ts1, err := repos.Metadata.GetTime(ctx, metadata.LastSyncKey(models.TableLoans))
	require.NoError(t, err)
	require.False(t, ts1.IsZero())

	// no new remote changes: the second pull must fetch zero rows
	result, err = engine.SyncTable(ctx, models.TableLoans)
	require.NoError(t, err)
	assert.Zero(t, result.Synced)

	ts2, err := repos.Metadata.GetTime(ctx, metadata.LastSyncKey(models.TableLoans))
	require.NoError(t, err)
	assert.False(t, ts2.Before(ts1), "last_sync must be non-decreasing")
}

func TestSyncTable_PullsOnlyNewRows(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	fake.seed("payments", map[string]any{"id": "p-1", "amount": 10.0})
	_, err := engine.SyncTable(ctx, models.TablePayments)
	require.NoError(t, err)

	// a row updated after the first sync; stamp it past the engine clock
	fake.mu.Lock()
	fake.clock = time.Now().UTC().Add(time.Second)
	fake.store("payments", map[string]any{"id": "p-2", "amount": 20.0})
	fake.mu.Unlock()

	result, err := engine.SyncTable(ctx, models.TablePayments)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	n, err := repos.Records.Count(ctx, models.TablePayments)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSyncTable_PullFailurePropagates(t *testing.T) {
	engine, fake, _ := setupEngine(t)

	fake.selectErr["clients"] = remote.ErrUnavailable

	result, err := engine.SyncTable(context.Background(), models.TableClients)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.False(t, result.Success)
}

func TestSyncTable_UnmanagedTable(t *testing.T) {
	engine, _, _ := setupEngine(t)
	_, err := engine.SyncTable(context.Background(), models.Table("users"))
	require.Error(t, err)
}

func TestDownloadAll_ReplacesCollections(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	// stale local row that no longer exists remotely
	env, err := models.NewEnvelope(models.TableClients, json.RawMessage(`{"id":"c-old"}`), true)
	require.NoError(t, err)
	require.NoError(t, repos.Records.Put(ctx, env))

	fake.seed("clients", map[string]any{"id": "c-1", "full_name": "A"})
	fake.seed("loans", map[string]any{"id": "l-1", "client_id": "c-1", "amount": 100.0})

	result, err := engine.DownloadAll(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Synced)

	_, err = repos.Records.GetByID(ctx, models.TableClients, "c-old")
	assert.Error(t, err, "full download overwrites the collection")

	fullSync, err := repos.Metadata.GetTime(ctx, metadata.LastFullSyncKey)
	require.NoError(t, err)
	assert.False(t, fullSync.IsZero())
}

func TestDownloadAll_PartialCommit(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	fake.seed("clients", map[string]any{"id": "c-1"})
	fake.selectErr["payments"] = remote.ErrUnavailable

	_, err := engine.DownloadAll(ctx)
	require.Error(t, err)

	// tables downloaded before the failure stay committed
	n, err := repos.Records.Count(ctx, models.TableClients)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// the global stamp is withheld on failure
	fullSync, err := repos.Metadata.GetTime(ctx, metadata.LastFullSyncKey)
	require.NoError(t, err)
	assert.True(t, fullSync.IsZero())
}

func TestSyncAll_DrainsThenSyncs(t *testing.T) {
	engine, fake, repos := setupEngine(t)
	ctx := context.Background()

	enqueue(t, repos, models.ActionCreate, models.TablePayments, `{"id":"p-1","amount":10}`)
	fake.seed("clients", map[string]any{"id": "c-1"})

	result, err := engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// queued payment reached the remote, remote client reached the cache
	assert.NotNil(t, fake.get("payments", "p-1"))
	n, err := repos.Records.Count(ctx, models.TableClients)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncAll_AggregatesTableFailures(t *testing.T) {
	engine, fake, _ := setupEngine(t)

	fake.selectErr["loans"] = remote.ErrUnavailable

	result, err := engine.SyncAll(context.Background())
	require.NoError(t, err, "per-table failures are aggregated, not thrown")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "loans")
}
