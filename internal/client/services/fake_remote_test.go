package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/avoskres/loankeeper/internal/client/models"
)

// fakeRemote is an in-memory stand-in for the hosted data API. It assigns
// server timestamps from its own monotonic clock and can be scripted to
// reject specific record ids or whole-table reads.
type fakeRemote struct {
	mu     sync.Mutex
	tables map[string]map[string]json.RawMessage

	// failIDs rejects writes for the given record ids.
	failIDs map[string]error
	// failUpdates rejects only updates, letting the insert of the same id
	// through.
	failUpdates map[string]error
	// selectErr fails reads for the given tables.
	selectErr map[string]error
	pingErr   error

	clock time.Time

	inserts int
	updates int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tables:      make(map[string]map[string]json.RawMessage),
		failIDs:     make(map[string]error),
		failUpdates: make(map[string]error),
		selectErr:   make(map[string]error),
		// well behind the engine's clock so freshly synced tables see no
		// phantom "new" rows on the next pull
		clock: time.Now().UTC().Add(-time.Hour),
	}
}

func (f *fakeRemote) stamp() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// seed installs a record server-side without counting as a client write.
func (f *fakeRemote) seed(table string, record map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store(table, record)
}

func (f *fakeRemote) store(table string, record map[string]any) {
	record["updated_at"] = f.stamp().Format(time.RFC3339Nano)
	b, _ := json.Marshal(record)
	if f.tables[table] == nil {
		f.tables[table] = make(map[string]json.RawMessage)
	}
	f.tables[table][record["id"].(string)] = b
}

func (f *fakeRemote) get(table, id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.tables[table][id]
	if !ok {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

func decodeRecord(record json.RawMessage) map[string]any {
	var m map[string]any
	_ = json.Unmarshal(record, &m)
	return m
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeRemote) Select(ctx context.Context, table string, since time.Time, limit int) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.selectErr[table]; err != nil {
		return nil, err
	}

	type stamped struct {
		at  time.Time
		raw json.RawMessage
	}
	var rows []stamped
	for _, raw := range f.tables[table] {
		at, err := models.RecordUpdatedAt(raw)
		if err != nil {
			return nil, err
		}
		if !since.IsZero() && !at.After(since) {
			continue
		}
		rows = append(rows, stamped{at: at, raw: raw})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].at.After(rows[j].at) })
	if len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.raw)
	}
	return out, nil
}

func (f *fakeRemote) Insert(ctx context.Context, table string, record json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m := decodeRecord(record)
	id, _ := m["id"].(string)
	if err := f.failIDs[id]; err != nil {
		return err
	}
	f.store(table, m)
	f.inserts++
	return nil
}

func (f *fakeRemote) Update(ctx context.Context, table string, id string, record json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failIDs[id]; err != nil {
		return err
	}
	if err := f.failUpdates[id]; err != nil {
		return err
	}
	m := decodeRecord(record)
	m["id"] = id
	f.store(table, m)
	f.updates++
	return nil
}

func (f *fakeRemote) Exists(ctx context.Context, table string, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tables[table][id]
	return ok, nil
}

func (f *fakeRemote) SignIn(ctx context.Context, email, password string) error { return nil }

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts + f.updates
}
