package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"kakebo/internal/cli"
	"kakebo/internal/config"
	"kakebo/internal/connectivity"
	"kakebo/internal/core"
	"kakebo/internal/services"
	"kakebo/internal/storage"
)

const usage = `kakebo - offline-first household expense tracker

Usage:
  kakebo add -desc <text> -amount <euros> -cat <category> [-sub <subcategory>] [-date YYYY-MM-DD] [-notes <text>]
  kakebo list [-year N -month N]
  kakebo rm <expense-id>
  kakebo budget -year N -month N -amount <euros> [-cat <category>]
  kakebo budgets [-year N -month N]
  kakebo goal -name <text> -target <euros>
  kakebo goals
  kakebo contribute -id <goal-id> -amount <euros>
  kakebo recurring -desc <text> -amount <euros> -cat <category> -every <daily|weekly|monthly|yearly> -start YYYY-MM-DD [-end YYYY-MM-DD]
  kakebo recurrings
  kakebo summary [-year N -month N]
  kakebo sync
  kakebo status
`

type app struct {
	cfg       *config.Config
	store     *storage.Store
	monitor   *connectivity.Monitor
	engine    *services.SyncEngine
	expenses  *services.ExpenseService
	budgets   *services.BudgetService
	goals     *services.SavingsGoalService
	recurring *services.RecurringExpenseService
	summaries *services.SummaryService
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	a := buildApp(ctx, cfg, logger)
	defer a.store.Close()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "kakebo: %v\n", err)
		os.Exit(1)
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) *app {
	store := cli.OpenStore(logger, cfg.DBPath)
	gateway := cli.NewGateway(logger, cfg)

	expenseCol := storage.NewCollection[core.Expense](store, storage.BucketExpenses)
	budgetCol := storage.NewCollection[core.Budget](store, storage.BucketBudgets)
	goalCol := storage.NewCollection[core.SavingsGoal](store, storage.BucketSavingsGoals)
	recurringCol := storage.NewCollection[core.RecurringExpense](store, storage.BucketRecurringExpenses)
	queue := storage.NewQueue(store)

	monitor := connectivity.NewMonitor(connectivity.Config{
		SyncInterval: cfg.SyncInterval,
		Probe:        gateway.Ping,
	})
	// One-shot invocation: probe once instead of running the loop.
	monitor.SetOnline(gateway.Ping(ctx) == nil)

	engine := services.NewSyncEngine(queue, expenseCol, gateway, monitor, store,
		services.EngineConfig{PullAfterDrain: cfg.PullAfterDrain})
	monitor.SetDrainFunc(func(ctx context.Context) error {
		_, err := engine.Drain(ctx)
		return err
	})

	expenseSvc := services.NewExpenseService(expenseCol, queue, gateway, monitor)
	summarySvc := services.NewSummaryService(expenseCol, budgetCol, cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	expenseSvc.SetOnMutate(summarySvc.InvalidateDate)

	return &app{
		cfg:       cfg,
		store:     store,
		monitor:   monitor,
		engine:    engine,
		expenses:  expenseSvc,
		budgets:   services.NewBudgetService(budgetCol, queue),
		goals:     services.NewSavingsGoalService(goalCol, queue),
		recurring: services.NewRecurringExpenseService(recurringCol, queue),
		summaries: summarySvc,
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "add":
		return a.cmdAdd(ctx, args)
	case "list":
		return a.cmdList(ctx, args)
	case "rm":
		return a.cmdRemove(ctx, args)
	case "budget":
		return a.cmdBudget(ctx, args)
	case "budgets":
		return a.cmdBudgets(ctx, args)
	case "goal":
		return a.cmdGoal(ctx, args)
	case "goals":
		return a.cmdGoals(ctx)
	case "contribute":
		return a.cmdContribute(ctx, args)
	case "recurring":
		return a.cmdRecurring(ctx, args)
	case "recurrings":
		return a.cmdRecurrings(ctx)
	case "summary":
		return a.cmdSummary(ctx, args)
	case "sync":
		return a.cmdSync(ctx)
	case "status":
		return a.cmdStatus(ctx)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	desc := fs.String("desc", "", "expense description")
	amount := fs.String("amount", "", "amount in euros, e.g. 12.50")
	cat := fs.String("cat", "", "primary category")
	sub := fs.String("sub", "", "secondary category")
	date := fs.String("date", "", "date YYYY-MM-DD (default: today)")
	notes := fs.String("notes", "", "free-form notes")
	fs.Parse(args)

	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	when := time.Now()
	if *date != "" {
		when, err = time.Parse("2006-01-02", *date)
		if err != nil {
			return fmt.Errorf("parse date: %w", err)
		}
	}

	created, err := a.expenses.Create(ctx, core.Expense{
		Date:        core.Date{Time: when},
		Description: *desc,
		Amount:      core.Money{Cents: cents},
		Primary:     *cat,
		Secondary:   *sub,
		Notes:       *notes,
	})
	if err != nil {
		return err
	}
	fmt.Printf("added %s  %s  %s\n", created.ID, formatCents(created.Amount.Cents), created.Description)
	return nil
}

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	year := fs.Int("year", 0, "filter by year")
	month := fs.Int("month", 0, "filter by month (1-12)")
	fs.Parse(args)

	var (
		expenses []core.Expense
		err      error
	)
	if *year != 0 && *month != 0 {
		expenses, err = a.expenses.ListMonth(ctx, *year, *month)
	} else {
		expenses, err = a.expenses.List(ctx)
	}
	if err != nil {
		return err
	}

	for _, e := range expenses {
		fmt.Printf("%s  %s  %10s  %-12s %s\n",
			e.ID, e.Date.Format("2006-01-02"), formatCents(e.Amount.Cents), e.Primary, e.Description)
	}
	return nil
}

func (a *app) cmdRemove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: kakebo rm <expense-id>")
	}
	if err := a.expenses.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}

func (a *app) cmdBudget(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("budget", flag.ExitOnError)
	year := fs.Int("year", time.Now().Year(), "budget year")
	month := fs.Int("month", int(time.Now().Month()), "budget month (1-12)")
	amount := fs.String("amount", "", "amount in euros")
	cat := fs.String("cat", "", "category (empty: whole month)")
	fs.Parse(args)

	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	created, err := a.budgets.Create(ctx, core.Budget{
		Year:     *year,
		Month:    *month,
		Category: *cat,
		Amount:   core.Money{Cents: cents},
	})
	if err != nil {
		return err
	}
	fmt.Printf("budget %s set for %04d-%02d: %s\n", created.ID, created.Year, created.Month, formatCents(created.Amount.Cents))
	return nil
}

func (a *app) cmdBudgets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("budgets", flag.ExitOnError)
	year := fs.Int("year", 0, "filter by year")
	month := fs.Int("month", 0, "filter by month (1-12)")
	fs.Parse(args)

	var (
		budgets []core.Budget
		err     error
	)
	if *year != 0 && *month != 0 {
		budgets, err = a.budgets.ForMonth(ctx, *year, *month)
	} else {
		budgets, err = a.budgets.List(ctx)
	}
	if err != nil {
		return err
	}

	for _, b := range budgets {
		cat := b.Category
		if cat == "" {
			cat = "(all)"
		}
		fmt.Printf("%s  %04d-%02d  %-12s %s\n", b.ID, b.Year, b.Month, cat, formatCents(b.Amount.Cents))
	}
	return nil
}

func (a *app) cmdGoal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("goal", flag.ExitOnError)
	name := fs.String("name", "", "goal name")
	target := fs.String("target", "", "target amount in euros")
	fs.Parse(args)

	cents, err := core.ParseDecimalToCents(*target)
	if err != nil {
		return fmt.Errorf("parse target: %w", err)
	}

	created, err := a.goals.Create(ctx, core.SavingsGoal{
		Name:   *name,
		Target: core.Money{Cents: cents},
	})
	if err != nil {
		return err
	}
	fmt.Printf("goal %s created: %s, target %s\n", created.ID, created.Name, formatCents(created.Target.Cents))
	return nil
}

func (a *app) cmdGoals(ctx context.Context) error {
	goals, err := a.goals.List(ctx)
	if err != nil {
		return err
	}
	for _, g := range goals {
		fmt.Printf("%s  %-20s %s / %s\n", g.ID, g.Name, formatCents(g.Saved.Cents), formatCents(g.Target.Cents))
	}
	return nil
}

func (a *app) cmdContribute(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("contribute", flag.ExitOnError)
	id := fs.String("id", "", "goal id")
	amount := fs.String("amount", "", "amount in euros")
	fs.Parse(args)

	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}
	if err := a.goals.Contribute(ctx, *id, core.Money{Cents: cents}); err != nil {
		return err
	}
	fmt.Printf("added %s to goal %s\n", formatCents(cents), *id)
	return nil
}

func (a *app) cmdRecurring(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recurring", flag.ExitOnError)
	desc := fs.String("desc", "", "expense description")
	amount := fs.String("amount", "", "amount in euros")
	cat := fs.String("cat", "", "primary category")
	sub := fs.String("sub", "", "secondary category")
	every := fs.String("every", "monthly", "daily|weekly|monthly|yearly")
	start := fs.String("start", "", "start date YYYY-MM-DD")
	end := fs.String("end", "", "end date YYYY-MM-DD (optional)")
	fs.Parse(args)

	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}
	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("parse start date: %w", err)
	}

	re := core.RecurringExpense{
		StartDate:   core.Date{Time: startDate},
		Every:       core.RepetitionTypes(*every),
		Description: *desc,
		Amount:      core.Money{Cents: cents},
		Primary:     *cat,
		Secondary:   *sub,
	}
	if *end != "" {
		endDate, err := time.Parse("2006-01-02", *end)
		if err != nil {
			return fmt.Errorf("parse end date: %w", err)
		}
		re.EndDate = core.Date{Time: endDate}
	}

	created, err := a.recurring.Create(ctx, re)
	if err != nil {
		return err
	}
	fmt.Printf("recurring %s created: %s %s every %s\n",
		created.ID, formatCents(created.Amount.Cents), created.Description, created.Every)
	return nil
}

func (a *app) cmdRecurrings(ctx context.Context) error {
	templates, err := a.recurring.List(ctx)
	if err != nil {
		return err
	}
	for _, re := range templates {
		fmt.Printf("%s  %-8s %10s  %s\n", re.ID, re.Every, formatCents(re.Amount.Cents), re.Description)
	}
	return nil
}

func (a *app) cmdSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	year := fs.Int("year", time.Now().Year(), "year")
	month := fs.Int("month", int(time.Now().Month()), "month (1-12)")
	fs.Parse(args)

	overview, err := a.summaries.MonthOverview(ctx, *year, *month)
	if err != nil {
		return err
	}

	fmt.Printf("%04d-%02d\n", overview.Year, overview.Month)
	fmt.Printf("  total:     %s\n", formatCents(overview.Total.Cents))
	for _, c := range overview.ByCategory {
		fmt.Printf("    %-12s %s\n", c.Name, formatCents(c.Amount.Cents))
	}
	if overview.Budget.Cents > 0 {
		fmt.Printf("  budget:    %s\n", formatCents(overview.Budget.Cents))
		fmt.Printf("  remaining: %s\n", formatCents(overview.Remaining.Cents))
	}
	return nil
}

func (a *app) cmdSync(ctx context.Context) error {
	report, err := a.engine.ForceSync(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("synced %d, dropped %d, retained %d (%s)\n",
		report.Synced, report.Dropped, report.Retained, report.Duration.Round(time.Millisecond))
	return nil
}

func (a *app) cmdStatus(ctx context.Context) error {
	status, err := a.engine.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
