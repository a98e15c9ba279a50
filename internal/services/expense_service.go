package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"kakebo/internal/core"
	"kakebo/internal/remote"
	"kakebo/internal/storage"
)

// ExpenseService applies expense mutations optimistically: the local
// collection changes first, unconditionally, then the change is routed
// upstream. Online, the gateway is called directly; offline (or after a
// transient direct-call failure) the operation is queued for the sync
// engine instead. Terminal remote failures surface to the caller, but
// the local mutation stands either way.
type ExpenseService struct {
	expenses *storage.Collection[core.Expense]
	queue    *storage.Queue
	gateway  remote.Gateway
	conn     Connectivity

	// onMutate, if set, runs after every local mutation (cache
	// invalidation hook).
	onMutate func(core.Date)
}

func NewExpenseService(
	expenses *storage.Collection[core.Expense],
	queue *storage.Queue,
	gateway remote.Gateway,
	conn Connectivity,
) *ExpenseService {
	return &ExpenseService{
		expenses: expenses,
		queue:    queue,
		gateway:  gateway,
		conn:     conn,
	}
}

// SetOnMutate registers a hook called after every local mutation.
func (s *ExpenseService) SetOnMutate(hook func(core.Date)) {
	s.onMutate = hook
}

// Create validates, saves locally, and routes the mutation upstream.
// The returned expense carries the generated id.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return e, err
	}

	if err := s.expenses.Save(ctx, e); err != nil {
		return e, fmt.Errorf("save expense: %w", err)
	}
	s.mutated(e.Date)

	slog.InfoContext(ctx, "Expense saved locally",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents)

	return e, s.route(ctx, core.OpCreate, expensePayload(e))
}

// Update validates, replaces the local record, and routes upstream.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if e.ID == "" {
		return fmt.Errorf("update expense: missing id")
	}
	if err := e.Validate(); err != nil {
		return err
	}

	if err := s.expenses.Update(ctx, e.ID, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.mutated(e.Date)

	return s.route(ctx, core.OpUpdate, expensePayload(e))
}

// Delete removes the record locally and routes the deletion upstream.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	existing, found, err := s.expenses.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	if err := s.expenses.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if found {
		s.mutated(existing.Date)
	}

	return s.routeDelete(ctx, id)
}

// List returns all local expenses, most recent first.
func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	return s.expenses.All(ctx)
}

// ListMonth returns the local expenses falling in the given month.
func (s *ExpenseService) ListMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	all, err := s.expenses.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(all))
	for _, e := range all {
		if e.Date.Year() == year && e.Date.Month() == month {
			out = append(out, e)
		}
	}
	return out, nil
}

// route sends the mutation to the gateway when online, falling back to
// the queue on transient failure; offline it queues straight away.
func (s *ExpenseService) route(ctx context.Context, typ core.OperationType, payload remote.ExpensePayload) error {
	if !s.conn.Online() {
		return s.enqueue(ctx, typ, payload)
	}

	var err error
	switch typ {
	case core.OpCreate:
		_, err = s.gateway.CreateExpense(ctx, payload)
	case core.OpUpdate:
		_, err = s.gateway.UpdateExpense(ctx, payload.ID, payload)
	}
	if err == nil {
		return nil
	}
	if remote.IsTerminal(err) {
		return fmt.Errorf("remote %s rejected: %w", typ, err)
	}

	// Transient or credential fault: saved locally, will sync later.
	slog.InfoContext(ctx, "Remote call failed, queued for later sync",
		"op_type", string(typ),
		"id", payload.ID,
		"error", err)
	return s.enqueue(ctx, typ, payload)
}

func (s *ExpenseService) routeDelete(ctx context.Context, id string) error {
	if !s.conn.Online() {
		return s.enqueue(ctx, core.OpDelete, deletePayload{ID: id})
	}

	err := s.gateway.DeleteExpense(ctx, id)
	if err == nil {
		return nil
	}
	if remote.IsTerminal(err) {
		// Already gone server-side; nothing left to do.
		slog.WarnContext(ctx, "Remote delete was terminal, treating as done",
			"id", id, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Remote delete failed, queued for later sync",
		"id", id, "error", err)
	return s.enqueue(ctx, core.OpDelete, deletePayload{ID: id})
}

func (s *ExpenseService) enqueue(ctx context.Context, typ core.OperationType, data any) error {
	if _, err := s.queue.Enqueue(ctx, typ, core.EntityExpense, data); err != nil {
		// A lost queue write would silently lose the mutation; fail loudly.
		return fmt.Errorf("enqueue %s: %w", typ, err)
	}
	return nil
}

func (s *ExpenseService) mutated(date core.Date) {
	if s.onMutate != nil {
		s.onMutate(date)
	}
}
