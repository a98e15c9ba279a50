package services

import (
	"kakebo/internal/core"
	"kakebo/internal/remote"
)

// expensePayload converts a local expense to its wire shape. The queue
// stores this shape, so a queued operation replays with exactly the
// fields the gateway expects.
func expensePayload(e core.Expense) remote.ExpensePayload {
	return remote.ExpensePayload{
		ID:          e.ID,
		Description: e.Description,
		Category:    e.Primary,
		Subcategory: e.Secondary,
		AmountCents: e.Amount.Cents,
		OccurredAt:  e.Date.Time,
		Notes:       e.Notes,
		ReceiptRef:  e.ReceiptRef,
	}
}

// expenseFromRecord converts an authoritative remote record back to the
// local shape, used by pull-latest reconciliation.
func expenseFromRecord(rec remote.Record) core.Expense {
	return core.Expense{
		ID:          rec.ID,
		Date:        core.Date{Time: rec.OccurredAt},
		Description: rec.Description,
		Amount:      core.Money{Cents: rec.AmountCents},
		Primary:     rec.Category,
		Secondary:   rec.Subcategory,
		Notes:       rec.Notes,
		ReceiptRef:  rec.ReceiptRef,
	}
}

// deletePayload is the minimal payload a DELETE operation carries.
type deletePayload struct {
	ID string `json:"id"`
}
