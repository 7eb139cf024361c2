// Package models defines client-side data models used by LoanKeeper:
// the closed set of syncable tables, domain records, the local storage
// envelope and the queued offline action.
package models

import (
	"fmt"

	"github.com/avoskres/loankeeper/internal/common"
)

// Table identifies one syncable collection. The set is closed so that
// dispatch on a collection is exhaustive rather than stringly-typed.
type Table string

const (
	TableClients  Table = "clients"
	TableLoans    Table = "loans"
	TablePayments Table = "payments"
	TableSchedule Table = "payment_schedule"

	// TableQueue is the reserved collection holding the offline mutation
	// queue itself. It is never synced as data.
	TableQueue Table = "pending_actions"
)

// ManagedTables returns the syncable collections in sync order.
// Clients come first so that loans/payments referencing them are pulled
// after their owners exist locally.
func ManagedTables() []Table {
	return []Table{TableClients, TableLoans, TablePayments, TableSchedule}
}

// ParseTable maps a collection name to a managed Table.
func ParseTable(s string) (Table, error) {
	for _, t := range ManagedTables() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownTable, s)
}

func (t Table) String() string { return string(t) }

// Endpoint is the remote resource name for this table. The backend exposes
// one REST resource per table, named identically.
func (t Table) Endpoint() string { return string(t) }
