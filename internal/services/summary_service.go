package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kakebo/internal/cache"
	"kakebo/internal/core"
	"kakebo/internal/storage"
)

// SummaryService computes month overviews (total, per-category totals,
// budget remainder) from the local store. Results are cached in a TTL'd
// LRU keyed by month; expense mutations invalidate the affected month.
type SummaryService struct {
	expenses *storage.Collection[core.Expense]
	budgets  *storage.Collection[core.Budget]
	cache    *cache.LRUCache[core.MonthOverview]
}

func NewSummaryService(
	expenses *storage.Collection[core.Expense],
	budgets *storage.Collection[core.Budget],
	cacheSize int,
	cacheTTL time.Duration,
) *SummaryService {
	return &SummaryService{
		expenses: expenses,
		budgets:  budgets,
		cache:    cache.NewLRUCache[core.MonthOverview](cacheSize, cacheTTL),
	}
}

// Cache exposes the underlying cache for registration with a cache.Manager.
func (s *SummaryService) Cache() *cache.LRUCache[core.MonthOverview] {
	return s.cache
}

// MonthOverview returns the summary for a given year and month.
func (s *SummaryService) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	key := monthKey(year, month)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	overview := core.MonthOverview{Year: year, Month: month}

	all, err := s.expenses.All(ctx)
	if err != nil {
		return overview, fmt.Errorf("list expenses: %w", err)
	}

	byCategory := make(map[string]int64)
	for _, e := range all {
		if e.Date.Year() != year || e.Date.Month() != month {
			continue
		}
		overview.Total.Cents += e.Amount.Cents
		byCategory[e.Primary] += e.Amount.Cents
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{
			Name:   name,
			Amount: core.Money{Cents: byCategory[name]},
		})
	}

	budgets, err := s.budgets.All(ctx)
	if err != nil {
		return overview, fmt.Errorf("list budgets: %w", err)
	}
	for _, b := range budgets {
		if b.Year == year && b.Month == month {
			overview.Budget.Cents += b.Amount.Cents
		}
	}
	overview.Remaining.Cents = overview.Budget.Cents - overview.Total.Cents

	s.cache.Set(key, overview)
	return overview, nil
}

// InvalidateDate drops the cached overview for the month containing the
// given date. Wired as ExpenseService's mutation hook.
func (s *SummaryService) InvalidateDate(d core.Date) {
	s.cache.Delete(monthKey(d.Year(), d.Month()))
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
