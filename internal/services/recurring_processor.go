package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kakebo/internal/core"
	"kakebo/internal/storage"
)

// RecurringProcessor materializes due recurring-expense templates into
// real expenses. Materialized expenses go through ExpenseService, so
// they follow the same optimistic local-save-then-route path as manual
// entries.
type RecurringProcessor struct {
	recurring      *storage.Collection[core.RecurringExpense]
	expenseService *ExpenseService
}

// NewRecurringProcessor creates a new recurring expense processor
func NewRecurringProcessor(recurring *storage.Collection[core.RecurringExpense], expenseService *ExpenseService) *RecurringProcessor {
	return &RecurringProcessor{
		recurring:      recurring,
		expenseService: expenseService,
	}
}

// ProcessDueExpenses processes all recurring templates that are due at
// the given time and returns how many expenses were created.
func (p *RecurringProcessor) ProcessDueExpenses(ctx context.Context, now time.Time) (int, error) {
	if p.recurring == nil || p.expenseService == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.recurring.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"total", len(templates),
		"processing_date", now.Format("2006-01-02"))

	processedCount := 0

	for _, re := range templates {
		if !re.Active(now) {
			continue
		}

		checker, err := GetDuenessChecker(re.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Unknown repetition type",
				"id", re.ID, "every", string(re.Every), "error", err)
			continue
		}
		if !checker.IsDue(re.LastExecution, now, re.StartDate) {
			continue
		}

		expense := core.Expense{
			Date:        core.Date{Time: now},
			Description: re.Description,
			Amount:      re.Amount,
			Primary:     re.Primary,
			Secondary:   re.Secondary,
		}

		created, err := p.expenseService.Create(ctx, expense)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				"recurrent_id", re.ID,
				"description", re.Description,
				"error", err)
			continue
		}

		re.LastExecution = now
		if err := p.recurring.Update(ctx, re.ID, re); err != nil {
			slog.ErrorContext(ctx, "Failed to update last execution date",
				"recurrent_id", re.ID,
				"error", err)
			// Continue anyway - expense was created successfully
		}

		processedCount++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"recurrent_id", re.ID,
			"expense_id", created.ID,
			"description", re.Description,
			"amount_cents", re.Amount.Cents,
			"frequency", string(re.Every))
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"processed", processedCount,
		"total_checked", len(templates))

	return processedCount, nil
}
