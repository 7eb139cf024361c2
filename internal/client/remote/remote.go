// Package remote defines the client for the hosted relational data API and
// its HTTP implementation. The backend exposes one REST resource per managed
// table with an updated_at column; row-level access control is enforced
// server-side, so authorization failures come back as non-retryable errors.
package remote

import (
	"context"
	"encoding/json"
	"time"
)

// Client is the remote data API surface the sync engine depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	// Ping probes server reachability (used by the connectivity monitor).
	Ping(ctx context.Context) error

	// Select fetches records from table with updated_at strictly greater
	// than since (zero means no lower bound), newest first, capped at limit.
	Select(ctx context.Context, table string, since time.Time, limit int) ([]json.RawMessage, error)

	// Insert creates one record. The record carries a client-generated id.
	Insert(ctx context.Context, table string, record json.RawMessage) error

	// Update rewrites the record with the given id.
	Update(ctx context.Context, table string, id string, record json.RawMessage) error

	// Exists reports whether a record with the given id is present.
	Exists(ctx context.Context, table string, id string) (bool, error)

	// SignIn exchanges credentials for an authenticated session.
	SignIn(ctx context.Context, email, password string) error

	Close() error
}
