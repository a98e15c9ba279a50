package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"kakebo/internal/core"
	"kakebo/internal/storage"
)

// RecurringExpenseService manages recurring-expense templates. Templates
// are local-first and always queued; the materialized expenses they
// produce go through ExpenseService and take the normal expense path.
type RecurringExpenseService struct {
	recurring *storage.Collection[core.RecurringExpense]
	queue     *storage.Queue
}

func NewRecurringExpenseService(recurring *storage.Collection[core.RecurringExpense], queue *storage.Queue) *RecurringExpenseService {
	return &RecurringExpenseService{recurring: recurring, queue: queue}
}

func (s *RecurringExpenseService) Create(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	if re.ID == "" {
		re.ID = uuid.NewString()
	}
	if err := re.Validate(); err != nil {
		return re, err
	}
	if err := s.recurring.Save(ctx, re); err != nil {
		return re, fmt.Errorf("save recurring expense: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpCreate, core.EntityRecurringExpense, re); err != nil {
		return re, fmt.Errorf("enqueue recurring expense: %w", err)
	}
	return re, nil
}

func (s *RecurringExpenseService) Update(ctx context.Context, re core.RecurringExpense) error {
	if re.ID == "" {
		return fmt.Errorf("update recurring expense: missing id")
	}
	if err := re.Validate(); err != nil {
		return err
	}
	if err := s.recurring.Update(ctx, re.ID, re); err != nil {
		return fmt.Errorf("update recurring expense: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpUpdate, core.EntityRecurringExpense, re); err != nil {
		return fmt.Errorf("enqueue recurring expense: %w", err)
	}
	return nil
}

func (s *RecurringExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.recurring.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpDelete, core.EntityRecurringExpense, deletePayload{ID: id}); err != nil {
		return fmt.Errorf("enqueue recurring expense delete: %w", err)
	}
	return nil
}

func (s *RecurringExpenseService) List(ctx context.Context) ([]core.RecurringExpense, error) {
	return s.recurring.All(ctx)
}
