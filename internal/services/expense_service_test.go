package services

import (
	"context"
	"path/filepath"
	"testing"

	"kakebo/internal/core"
	"kakebo/internal/remote/memory"
	"kakebo/internal/storage"
)

type serviceFixture struct {
	service  *ExpenseService
	expenses *storage.Collection[core.Expense]
	queue    *storage.Queue
	gateway  *memory.Gateway
	conn     *stubConn
}

func newServiceFixture(t *testing.T, conn *stubConn) *serviceFixture {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "kakebo.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	expenses := storage.NewCollection[core.Expense](store, storage.BucketExpenses)
	queue := storage.NewQueue(store)
	gw := memory.New()
	return &serviceFixture{
		service:  NewExpenseService(expenses, queue, gw, conn),
		expenses: expenses,
		queue:    queue,
		gateway:  gw,
		conn:     conn,
	}
}

func validExpense(desc string, cents int64) core.Expense {
	return core.Expense{
		Date:        core.NewDate(2026, 8, 15),
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Primary:     "Spesa",
	}
}

func TestCreateOfflineSavesLocallyAndQueues(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, offline())

	created, err := fx.service.Create(ctx, validExpense("Groceries", 2350))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("create must assign an id")
	}

	// Immediately visible locally.
	all, _ := fx.expenses.All(ctx)
	if len(all) != 1 || all[0].ID != created.ID {
		t.Fatalf("expense not visible locally: %+v", all)
	}

	// Queued, not sent.
	pending, _ := fx.queue.Pending(ctx)
	if len(pending) != 1 || pending[0].Type != core.OpCreate {
		t.Fatalf("expected one pending CREATE, got %+v", pending)
	}
	if len(fx.gateway.Calls()) != 0 {
		t.Fatalf("offline create must not touch the gateway, got %v", fx.gateway.Calls())
	}
}

func TestCreateOnlineGoesDirect(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, online())

	created, err := fx.service.Create(ctx, validExpense("Coffee", 180))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	calls := fx.gateway.Calls()
	if len(calls) != 1 || calls[0].Op != "create" || calls[0].Payload.ID != created.ID {
		t.Fatalf("expected one direct create, got %+v", calls)
	}
	count, _ := fx.queue.PendingCount(ctx)
	if count != 0 {
		t.Fatalf("direct send must not queue, got %d pending", count)
	}
}

func TestCreateOnlineTransientFaultFallsBackToQueue(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, online())
	fx.gateway.SetUnavailable(true)

	created, err := fx.service.Create(ctx, validExpense("Train ticket", 950))
	if err != nil {
		t.Fatalf("transient fault must not fail the create: %v", err)
	}

	// Local record stands and the operation is queued for the engine.
	all, _ := fx.expenses.All(ctx)
	if len(all) != 1 || all[0].ID != created.ID {
		t.Fatalf("local record must stand, got %+v", all)
	}
	pending, _ := fx.queue.Pending(ctx)
	if len(pending) != 1 || pending[0].Type != core.OpCreate {
		t.Fatalf("expected queued fallback, got %+v", pending)
	}
}

func TestUpdateOnlineTerminalFaultSurfaces(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, online())

	e := validExpense("Rent", 80000)
	e.ID = "e-unknown" // remote has never seen it, update is a 404
	if err := fx.expenses.Save(ctx, e); err != nil {
		t.Fatalf("seed local: %v", err)
	}

	err := fx.service.Update(ctx, e)
	if err == nil {
		t.Fatal("terminal remote fault must surface to the caller")
	}

	// The local mutation still stands.
	got, found, _ := fx.expenses.Get(ctx, e.ID)
	if !found || got.Description != "Rent" {
		t.Fatalf("local record must survive the terminal fault, got %+v", got)
	}
	count, _ := fx.queue.PendingCount(ctx)
	if count != 0 {
		t.Fatalf("terminal fault must not queue a retry, got %d pending", count)
	}
}

func TestDeleteOfflineQueuesMinimalPayload(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, offline())

	created, err := fx.service.Create(ctx, validExpense("Cinema", 1200))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fx.service.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	all, _ := fx.expenses.All(ctx)
	if len(all) != 0 {
		t.Fatalf("expense should be gone locally, got %+v", all)
	}
	pending, _ := fx.queue.Pending(ctx)
	if len(pending) != 2 || pending[1].Type != core.OpDelete {
		t.Fatalf("expected CREATE then DELETE pending, got %+v", pending)
	}
}

func TestDeleteOnlineNotFoundIsDone(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, online())

	// Remote never saw this id; the 404 means the end state is reached.
	if err := fx.service.Delete(ctx, "already-gone"); err != nil {
		t.Fatalf("remote 404 on delete should not fail: %v", err)
	}
	count, _ := fx.queue.PendingCount(ctx)
	if count != 0 {
		t.Fatalf("nothing to retry, got %d pending", count)
	}
}

func TestCreateRejectsInvalidExpense(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, online())

	bad := validExpense("", 100)
	if _, err := fx.service.Create(ctx, bad); err == nil {
		t.Fatal("empty description must be rejected")
	}

	all, _ := fx.expenses.All(ctx)
	if len(all) != 0 {
		t.Fatal("invalid expense must not be saved")
	}
}

func TestListMonthFilters(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, offline())

	aug := validExpense("In August", 100)
	sep := validExpense("In September", 200)
	sep.Date = core.NewDate(2026, 9, 1)
	if _, err := fx.service.Create(ctx, aug); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := fx.service.Create(ctx, sep); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := fx.service.ListMonth(ctx, 2026, 8)
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(got) != 1 || got[0].Description != "In August" {
		t.Fatalf("expected only the August expense, got %+v", got)
	}
}

func TestOnMutateHookFires(t *testing.T) {
	ctx := context.Background()
	fx := newServiceFixture(t, offline())

	var invalidated []core.Date
	fx.service.SetOnMutate(func(d core.Date) { invalidated = append(invalidated, d) })

	created, err := fx.service.Create(ctx, validExpense("Hook test", 100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fx.service.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(invalidated) != 2 {
		t.Fatalf("expected hook on create and delete, got %d calls", len(invalidated))
	}
	if invalidated[0].Year() != 2026 || invalidated[0].Month() != 8 {
		t.Fatalf("hook should carry the mutation date, got %+v", invalidated[0])
	}
}
