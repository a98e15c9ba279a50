package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"kakebo/internal/core"
	"kakebo/internal/log"
	"kakebo/internal/remote"
	"kakebo/internal/storage"
)

// ErrOffline is returned by ForceSync when the client has no
// connectivity; the automatic triggers no-op silently instead.
var ErrOffline = errors.New("client is offline")

// Connectivity is the engine's read-only view of the monitor.
type Connectivity interface {
	Online() bool
}

// EngineConfig holds sync engine configuration.
type EngineConfig struct {
	// PullAfterDrain fetches the authoritative expense list after a
	// pass that synced at least one operation and merges it into the
	// local collection, remote data taking precedence. Off by default.
	PullAfterDrain bool
}

// DrainReport summarizes what one drain pass did.
type DrainReport struct {
	Attempted   int // expense operations dispatched
	Synced      int // confirmed by the remote
	Dropped     int // abandoned after a terminal fault
	Retained    int // left pending after a transient fault
	Unsupported int // entity kinds the engine cannot dispatch yet
	Skipped     bool
	Offline     bool
	Duration    time.Duration
}

// EngineStatus is a non-blocking snapshot for status displays.
type EngineStatus struct {
	Online    bool
	Pending   int
	LastDrain time.Time // zero until a first completed drain
}

func (s EngineStatus) String() string {
	state := "offline"
	if s.Online {
		state = "online"
	}
	last := "never"
	if !s.LastDrain.IsZero() {
		last = s.LastDrain.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s, %d pending, last drain %s", state, s.Pending, last)
}

// SyncEngine replays the pending queue against the remote gateway:
// strictly FIFO, one operation at a time, with per-operation failure
// classification. At most one drain runs at a time; concurrent triggers
// coalesce into a no-op.
type SyncEngine struct {
	queue    *storage.Queue
	expenses *storage.Collection[core.Expense]
	gateway  remote.Gateway
	conn     Connectivity
	store    *storage.Store
	config   EngineConfig
	logger   *log.Logger

	mu       sync.Mutex
	draining bool
}

func NewSyncEngine(
	queue *storage.Queue,
	expenses *storage.Collection[core.Expense],
	gateway remote.Gateway,
	conn Connectivity,
	store *storage.Store,
	config EngineConfig,
) *SyncEngine {
	return &SyncEngine{
		queue:    queue,
		expenses: expenses,
		gateway:  gateway,
		conn:     conn,
		store:    store,
		config:   config,
		logger:   log.ForComponent(log.ComponentEngine),
	}
}

// Drain runs one complete pass over the pending queue. If a drain is
// already in progress the call returns immediately with a skipped
// report; the next trigger will simply re-attempt.
func (e *SyncEngine) Drain(ctx context.Context) (DrainReport, error) {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "Drain already in progress, skipping")
		return DrainReport{Skipped: true}, nil
	}
	e.draining = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()
	}()

	return e.drain(ctx)
}

// ForceSync is the manual trigger: same pass as Drain, but offline is an
// explicit error instead of a silent no-op.
func (e *SyncEngine) ForceSync(ctx context.Context) (DrainReport, error) {
	if !e.conn.Online() {
		return DrainReport{Offline: true}, ErrOffline
	}
	return e.Drain(ctx)
}

// Status returns connectivity, pending count, and the last completed
// drain time. Read-only and non-blocking: it never touches the network
// and never waits on a running drain.
func (e *SyncEngine) Status(ctx context.Context) (EngineStatus, error) {
	status := EngineStatus{Online: e.conn.Online()}

	pending, err := e.queue.PendingCount(ctx)
	if err != nil {
		return status, fmt.Errorf("pending count: %w", err)
	}
	status.Pending = pending

	raw, err := e.store.GetMeta(ctx, storage.MetaLastDrain)
	if err != nil {
		return status, fmt.Errorf("read last drain: %w", err)
	}
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			status.LastDrain = ts
		}
	}
	return status, nil
}

func (e *SyncEngine) drain(ctx context.Context) (DrainReport, error) {
	start := time.Now()
	var report DrainReport

	if !e.conn.Online() {
		report.Offline = true
		return report, nil
	}

	pending, err := e.queue.Pending(ctx)
	if err != nil {
		return report, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	e.logger.InfoContext(ctx, "Draining sync queue", log.FieldPending, len(pending))

	var synced []string
	for _, op := range pending {
		if op.Entity != core.EntityExpense {
			// Accepted into the queue but not dispatched yet; stays
			// pending until a remote operation exists for the kind.
			e.logger.WarnContext(ctx, "Skipping unsupported entity kind",
				log.FieldOperationID, op.ID,
				log.FieldEntity, string(op.Entity),
				log.FieldOpType, string(op.Type))
			report.Unsupported++
			continue
		}

		report.Attempted++
		dispatchErr := e.dispatch(ctx, op)

		switch {
		case dispatchErr == nil:
			synced = append(synced, op.ID)
			report.Synced++

		case remote.IsCredential(dispatchErr):
			// Every remaining operation would fail the same way.
			// Persist the outcomes of this pass's processed prefix,
			// then surface to the auth layer.
			e.logger.WarnContext(ctx, "Credential rejected, aborting drain",
				log.FieldOperationID, op.ID,
				log.FieldError, dispatchErr)
			if err := e.persistOutcomes(ctx, synced); err != nil {
				e.logger.ErrorContext(ctx, "Failed to persist partial pass",
					log.FieldError, err)
			}
			report.Duration = time.Since(start)
			return report, fmt.Errorf("drain aborted: %w", dispatchErr)

		case remote.IsTerminal(dispatchErr):
			// Retrying can never succeed; drop it so it cannot block
			// the queue. The local mutation already happened, only
			// this diagnostic records the loss.
			e.logger.WarnContext(ctx, "Dropping operation after terminal remote fault",
				log.FieldOperationID, op.ID,
				log.FieldOpType, string(op.Type),
				log.FieldError, dispatchErr)
			synced = append(synced, op.ID)
			report.Dropped++

		default:
			// Transient: keep it verbatim for the next drain.
			e.logger.InfoContext(ctx, "Operation kept for retry after transient fault",
				log.FieldOperationID, op.ID,
				log.FieldOpType, string(op.Type),
				log.FieldError, dispatchErr)
			report.Retained++
		}
	}

	if err := e.finishPass(ctx, synced); err != nil {
		return report, err
	}

	if e.config.PullAfterDrain && report.Synced > 0 {
		e.pullLatest(ctx)
	}

	report.Duration = time.Since(start)
	e.logger.InfoContext(ctx, "Drain complete",
		log.FieldSynced, report.Synced,
		log.FieldDropped, report.Dropped,
		log.FieldRetained, report.Retained,
		log.FieldDuration, report.Duration.Milliseconds())
	return report, nil
}

// dispatch replays one expense operation through the gateway.
func (e *SyncEngine) dispatch(ctx context.Context, op core.SyncOperation) error {
	var payload remote.ExpensePayload
	if err := json.Unmarshal(op.Data, &payload); err != nil {
		// A payload that cannot decode can never succeed; classify it
		// terminally so it does not wedge the queue.
		return &remote.APIError{StatusCode: 400, Message: fmt.Sprintf("undecodable payload: %v", err)}
	}

	switch op.Type {
	case core.OpCreate:
		_, err := e.gateway.CreateExpense(ctx, payload)
		return err
	case core.OpUpdate:
		_, err := e.gateway.UpdateExpense(ctx, payload.ID, payload)
		return err
	case core.OpDelete:
		return e.gateway.DeleteExpense(ctx, payload.ID)
	default:
		return &remote.APIError{StatusCode: 400, Message: fmt.Sprintf("unknown operation type %s", op.Type)}
	}
}

// persistOutcomes flips synced flags and compacts confirmed entries
// away. Used alone when a pass is aborted: outcomes survive, but the
// pass does not count as a completed drain.
func (e *SyncEngine) persistOutcomes(ctx context.Context, synced []string) error {
	if len(synced) > 0 {
		if err := e.queue.MarkSynced(ctx, synced...); err != nil {
			return fmt.Errorf("mark synced: %w", err)
		}
	}
	if err := e.queue.Compact(ctx); err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	return nil
}

// finishPass persists the pass's outcomes and records the drain time.
func (e *SyncEngine) finishPass(ctx context.Context, synced []string) error {
	if err := e.persistOutcomes(ctx, synced); err != nil {
		return err
	}
	if err := e.store.SetMeta(ctx, storage.MetaLastDrain, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record drain time: %w", err)
	}
	return nil
}

// pullLatest merges the authoritative remote expense list into the local
// collection by id, remote data taking precedence. Failures only log:
// the push already succeeded and the next pull can reconcile.
func (e *SyncEngine) pullLatest(ctx context.Context) {
	records, err := e.gateway.ListExpenses(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "Pull-latest failed", log.FieldError, err)
		return
	}

	local, err := e.expenses.All(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "Pull-latest could not read local expenses", log.FieldError, err)
		return
	}

	remoteByID := make(map[string]core.Expense, len(records))
	for _, rec := range records {
		remoteByID[rec.ID] = expenseFromRecord(rec)
	}

	merged := make([]core.Expense, 0, len(local)+len(records))
	seen := make(map[string]bool, len(local))
	for _, exp := range local {
		if authoritative, ok := remoteByID[exp.ID]; ok {
			merged = append(merged, authoritative)
		} else {
			// Local-only records stay: they are either still queued
			// or intentionally local.
			merged = append(merged, exp)
		}
		seen[exp.ID] = true
	}
	for _, rec := range records {
		if !seen[rec.ID] {
			merged = append(merged, expenseFromRecord(rec))
		}
	}

	if err := e.expenses.Replace(ctx, merged); err != nil {
		e.logger.WarnContext(ctx, "Pull-latest could not persist merge", log.FieldError, err)
		return
	}
	e.logger.InfoContext(ctx, "Reconciled local expenses with remote state",
		"remote_count", len(records),
		"merged_count", len(merged))
}
