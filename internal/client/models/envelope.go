package models

import (
	"encoding/json"
	"time"
)

// Envelope wraps a record for local storage, adding sync-state metadata.
// Synced=false marks the local copy as provisional: it may diverge from, or
// not yet exist on, the remote system of record.
type Envelope struct {
	ID    string
	Table Table

	// Data is the record payload as stored/received, JSON-encoded.
	Data json.RawMessage

	Synced   bool
	StoredAt time.Time

	// UpdatedAt mirrors the record's server timestamp; zero until the
	// record has been acknowledged by the remote.
	UpdatedAt time.Time
}

// NewEnvelope builds an envelope for a raw payload, reading the id and
// updated_at fields out of the payload itself.
func NewEnvelope(table Table, data json.RawMessage, synced bool) (*Envelope, error) {
	id, err := RecordID(data)
	if err != nil {
		return nil, err
	}
	updated, err := RecordUpdatedAt(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        id,
		Table:     table,
		Data:      data,
		Synced:    synced,
		StoredAt:  time.Now().UTC(),
		UpdatedAt: updated,
	}, nil
}
