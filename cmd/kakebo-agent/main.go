// kakebo-agent is the long-running background companion to the kakebo
// CLI: it watches connectivity, drains the sync queue on regain and on
// an interval, and materializes due recurring expenses once a day.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"kakebo/internal/cache"
	"kakebo/internal/cli"
	"kakebo/internal/connectivity"
	"kakebo/internal/core"
	"kakebo/internal/services"
	"kakebo/internal/storage"
)

const recurringCheckInterval = time.Hour

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := cli.OpenStore(logger, cfg.DBPath)
	defer store.Close()

	gateway := cli.NewGateway(logger, cfg)

	expenseCol := storage.NewCollection[core.Expense](store, storage.BucketExpenses)
	budgetCol := storage.NewCollection[core.Budget](store, storage.BucketBudgets)
	recurringCol := storage.NewCollection[core.RecurringExpense](store, storage.BucketRecurringExpenses)
	queue := storage.NewQueue(store)

	monitor := connectivity.NewMonitor(connectivity.Config{
		SyncInterval:  cfg.SyncInterval,
		ProbeInterval: cfg.ProbeInterval,
		Probe:         gateway.Ping,
	})

	engine := services.NewSyncEngine(queue, expenseCol, gateway, monitor, store,
		services.EngineConfig{PullAfterDrain: cfg.PullAfterDrain})
	monitor.SetDrainFunc(func(ctx context.Context) error {
		_, err := engine.Drain(ctx)
		return err
	})

	expenseSvc := services.NewExpenseService(expenseCol, queue, gateway, monitor)
	summarySvc := services.NewSummaryService(expenseCol, budgetCol, cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	expenseSvc.SetOnMutate(summarySvc.InvalidateDate)

	processor := services.NewRecurringProcessor(recurringCol, expenseSvc)

	caches := cache.NewManager()
	caches.Register(summarySvc.Cache())
	caches.StartCleanup(cfg.SummaryCacheTTL)
	defer caches.Stop()

	if err := monitor.Start(ctx); err != nil {
		logger.Error("Failed to start connectivity monitor", "error", err)
		os.Exit(1)
	}

	logger.Info("Agent started",
		"db_path", cfg.DBPath,
		"sync_interval", cfg.SyncInterval.String(),
		"probe_interval", cfg.ProbeInterval.String())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runRecurringLoop(gctx, logger, processor)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return monitor.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Agent exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Agent stopped")
}

// runRecurringLoop materializes due recurring expenses immediately and
// then on a fixed interval. The dueness checkers make re-checks within
// the same period no-ops, so the interval only bounds latency.
func runRecurringLoop(ctx context.Context, logger *slog.Logger, processor *services.RecurringProcessor) error {
	process := func() {
		n, err := processor.ProcessDueExpenses(ctx, time.Now())
		if err != nil {
			logger.Error("Recurring expense processing failed", "error", err)
			return
		}
		if n > 0 {
			logger.Info("Materialized recurring expenses", "count", n)
		}
	}

	process()

	ticker := time.NewTicker(recurringCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			process()
		}
	}
}
