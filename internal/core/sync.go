package core

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// OperationType is the kind of mutation a queued operation replays.
type OperationType string

const (
	OpCreate OperationType = "CREATE"
	OpUpdate OperationType = "UPDATE"
	OpDelete OperationType = "DELETE"
)

// EntityKind names the collection a queued operation targets.
type EntityKind string

const (
	EntityExpense          EntityKind = "expense"
	EntityBudget           EntityKind = "budget"
	EntitySavingsGoal      EntityKind = "savings_goal"
	EntityRecurringExpense EntityKind = "recurring_expense"
)

var (
	ErrInvalidOperationType = errors.New("invalid operation type")
	ErrInvalidEntityKind    = errors.New("invalid entity kind")
)

// SyncOperation is one pending mutation in the durable sync queue.
//
// The ID is a ULID: a millisecond timestamp plus a random suffix, so ids
// are unique across rapid enqueues and sort by enqueue time. Ordering is
// still authoritative by queue position, not by id or Timestamp.
type SyncOperation struct {
	ID        string          `json:"id"`
	Type      OperationType   `json:"type"`
	Entity    EntityKind      `json:"entity"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Synced    bool            `json:"synced"`
}

// NewSyncOperation builds a pending operation with a fresh id.
func NewSyncOperation(typ OperationType, entity EntityKind, data json.RawMessage) (SyncOperation, error) {
	if err := typ.Validate(); err != nil {
		return SyncOperation{}, err
	}
	if err := entity.Validate(); err != nil {
		return SyncOperation{}, err
	}
	return SyncOperation{
		ID:        ulid.Make().String(),
		Type:      typ,
		Entity:    entity,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Synced:    false,
	}, nil
}

func (t OperationType) Validate() error {
	switch t {
	case OpCreate, OpUpdate, OpDelete:
		return nil
	default:
		return ErrInvalidOperationType
	}
}

func (k EntityKind) Validate() error {
	switch k {
	case EntityExpense, EntityBudget, EntitySavingsGoal, EntityRecurringExpense:
		return nil
	default:
		return ErrInvalidEntityKind
	}
}
