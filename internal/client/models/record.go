package models

import (
	"encoding/json"
	"time"
)

// Record is the minimal shape every synced row shares. Ids are generated on
// the client (UUID) so a queued create can be referenced by later updates
// without any id remapping; updated_at is assigned by the server and drives
// incremental pull.
type Record struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Client is a borrower registered with the branch.
type Client struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Loan ties a disbursed amount to a client.
type Loan struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	Amount       float64    `json:"amount"`
	InterestRate float64    `json:"interest_rate,omitempty"`
	TermMonths   int        `json:"term_months,omitempty"`
	Status       string     `json:"status,omitempty"`
	DisbursedAt  *time.Time `json:"disbursed_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at,omitzero"`
}

// Payment is a collected installment payment against a loan.
type Payment struct {
	ID          string    `json:"id"`
	LoanID      string    `json:"loan_id"`
	Amount      float64   `json:"amount"`
	Method      string    `json:"method,omitempty"`
	PaidAt      time.Time `json:"paid_at,omitzero"`
	CollectorID string    `json:"collector_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Installment is one row of a loan's payment schedule.
type Installment struct {
	ID         string    `json:"id"`
	LoanID     string    `json:"loan_id"`
	DueDate    time.Time `json:"due_date"`
	AmountDue  float64   `json:"amount_due"`
	AmountPaid float64   `json:"amount_paid,omitempty"`
	Status     string    `json:"status,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// RecordID extracts the id field from a raw record payload.
func RecordID(data json.RawMessage) (string, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return "", err
	}
	return r.ID, nil
}

// RecordUpdatedAt extracts the server-assigned updated_at timestamp from a
// raw record payload. Zero when the field is absent.
func RecordUpdatedAt(data json.RawMessage) (time.Time, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return time.Time{}, err
	}
	return r.UpdatedAt, nil
}
