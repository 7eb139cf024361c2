// Package common defines shared sentinel errors used across LoanKeeper
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStorageUnavailable means the local database could not be opened.
	// The client degrades to remote-only operation when online.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrUnknownTable is returned when a collection name does not map to a
	// managed syncable table.
	ErrUnknownTable = errors.New("unknown table")
)
