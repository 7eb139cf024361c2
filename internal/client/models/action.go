package models

import (
	"encoding/json"
	"time"
)

// ActionKind is the remote effect a queued action resolves to.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
)

// Action is one buffered offline mutation. Actions stay queued until
// explicitly removed or marked synced; a failed replay keeps the action with
// LastError set instead of dropping it.
type Action struct {
	// ID is assigned at enqueue time and returned to the caller as a
	// provisional reference.
	ID string

	Kind  ActionKind
	Table Table

	// Payload is the full record for a create, or the record including its
	// target id for an update.
	Payload json.RawMessage

	CreatedAt time.Time
	Synced    bool
	LastError string
}

// TargetID returns the id of the record this action writes.
func (a *Action) TargetID() (string, error) {
	return RecordID(a.Payload)
}
