package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"kakebo/internal/core"
	"kakebo/internal/storage"
)

// BudgetService manages monthly budgets. Mutations are local-first and
// always queued: the gateway has no budget operations yet, so the queue
// holds them until the engine learns to dispatch the kind.
type BudgetService struct {
	budgets *storage.Collection[core.Budget]
	queue   *storage.Queue
}

func NewBudgetService(budgets *storage.Collection[core.Budget], queue *storage.Queue) *BudgetService {
	return &BudgetService{budgets: budgets, queue: queue}
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return b, err
	}
	if err := s.budgets.Save(ctx, b); err != nil {
		return b, fmt.Errorf("save budget: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpCreate, core.EntityBudget, b); err != nil {
		return b, fmt.Errorf("enqueue budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget saved",
		"id", b.ID, "year", b.Year, "month", b.Month, "amount_cents", b.Amount.Cents)
	return b, nil
}

func (s *BudgetService) Update(ctx context.Context, b core.Budget) error {
	if b.ID == "" {
		return fmt.Errorf("update budget: missing id")
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.budgets.Update(ctx, b.ID, b); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpUpdate, core.EntityBudget, b); err != nil {
		return fmt.Errorf("enqueue budget: %w", err)
	}
	return nil
}

func (s *BudgetService) Delete(ctx context.Context, id string) error {
	if err := s.budgets.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpDelete, core.EntityBudget, deletePayload{ID: id}); err != nil {
		return fmt.Errorf("enqueue budget delete: %w", err)
	}
	return nil
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	return s.budgets.All(ctx)
}

// ForMonth returns the budgets applying to a given month.
func (s *BudgetService) ForMonth(ctx context.Context, year, month int) ([]core.Budget, error) {
	all, err := s.budgets.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Budget, 0, len(all))
	for _, b := range all {
		if b.Year == year && b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}
