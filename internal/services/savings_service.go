package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"kakebo/internal/core"
	"kakebo/internal/storage"
)

// SavingsGoalService manages savings goals. Like budgets, mutations are
// local-first and always queued until the gateway grows operations for
// the kind.
type SavingsGoalService struct {
	goals *storage.Collection[core.SavingsGoal]
	queue *storage.Queue
}

func NewSavingsGoalService(goals *storage.Collection[core.SavingsGoal], queue *storage.Queue) *SavingsGoalService {
	return &SavingsGoalService{goals: goals, queue: queue}
}

func (s *SavingsGoalService) Create(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := g.Validate(); err != nil {
		return g, err
	}
	if err := s.goals.Save(ctx, g); err != nil {
		return g, fmt.Errorf("save savings goal: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpCreate, core.EntitySavingsGoal, g); err != nil {
		return g, fmt.Errorf("enqueue savings goal: %w", err)
	}
	slog.InfoContext(ctx, "Savings goal saved",
		"id", g.ID, "name", g.Name, "target_cents", g.Target.Cents)
	return g, nil
}

func (s *SavingsGoalService) Update(ctx context.Context, g core.SavingsGoal) error {
	if g.ID == "" {
		return fmt.Errorf("update savings goal: missing id")
	}
	if err := g.Validate(); err != nil {
		return err
	}
	if err := s.goals.Update(ctx, g.ID, g); err != nil {
		return fmt.Errorf("update savings goal: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpUpdate, core.EntitySavingsGoal, g); err != nil {
		return fmt.Errorf("enqueue savings goal: %w", err)
	}
	return nil
}

// Contribute adds an amount to a goal's saved total.
func (s *SavingsGoalService) Contribute(ctx context.Context, id string, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	g, found, err := s.goals.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("contribute: %w", err)
	}
	if !found {
		return fmt.Errorf("contribute: savings goal %s not found", id)
	}
	g.Saved.Cents += amount.Cents
	return s.Update(ctx, g)
}

func (s *SavingsGoalService) Delete(ctx context.Context, id string) error {
	if err := s.goals.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, core.OpDelete, core.EntitySavingsGoal, deletePayload{ID: id}); err != nil {
		return fmt.Errorf("enqueue savings goal delete: %w", err)
	}
	return nil
}

func (s *SavingsGoalService) List(ctx context.Context) ([]core.SavingsGoal, error) {
	return s.goals.All(ctx)
}
