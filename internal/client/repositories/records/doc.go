// Package records provides the local store: a persistent, collection-
// partitioned cache of server records.
//
// # Overview
//
// The package defines a Repository interface over storage envelopes (see
// internal/client/models) and a SQLite-backed implementation persisting
// through a dbx.DBTX (either *sql.DB or *sql.Tx). All collections share one
// physical table keyed by (collection, id), so the store stays agnostic of
// the domain schema.
//
// # Sync state
//
// Every envelope carries a synced flag. Unsynced envelopes are provisional
// local state and are the push candidates during synchronization; upserts by
// the pull path always write synced envelopes. A Put overwrites the whole
// envelope: last-write-wins at the local layer, no per-field merging.
//
// # Concurrency
//
// Implementations are safe for concurrent use when backed by a properly
// configured *sql.DB. When bound to a *sql.Tx, normal transaction scoping
// rules apply.
package records
