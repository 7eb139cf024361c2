// Package queue persists the offline mutation queue: an ordered log of
// create/update operations captured while the client was offline (or the
// write was deliberately deferred).
//
// Actions are replayed in FIFO creation order so that a create always lands
// before an update referencing it. A failed replay keeps the action queued
// with its error recorded; actions are only removed explicitly or after a
// confirmed sync, never dropped silently.
package queue
