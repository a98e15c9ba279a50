package remote

import (
	"context"
	"time"
)

// ExpensePayload is the wire shape of an expense sent to the server.
// The ID is client-generated, so offline creates keep their identity
// when they are finally replayed.
type ExpensePayload struct {
	ID          string    `json:"id,omitempty"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
	Notes       string    `json:"notes,omitempty"`
	ReceiptRef  string    `json:"receipt_ref,omitempty"`
}

// Record is an expense as the server knows it.
type Record struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
	Notes       string    `json:"notes,omitempty"`
	ReceiptRef  string    `json:"receipt_ref,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Gateway is the port the sync engine and the expense service use to
// reach the remote CRUD service. Implementations own request
// construction, credential attachment, and per-call timeouts.
type Gateway interface {
	CreateExpense(ctx context.Context, p ExpensePayload) (Record, error)
	UpdateExpense(ctx context.Context, id string, p ExpensePayload) (Record, error)
	DeleteExpense(ctx context.Context, id string) error

	// ListExpenses supports pull-latest reconciliation after a drain.
	ListExpenses(ctx context.Context) ([]Record, error)

	// Ping is a cheap reachability check used as the connectivity probe.
	Ping(ctx context.Context) error
}
