package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"kakebo/internal/core"
)

// BucketSyncQueue is the bucket holding the pending-operation log,
// persisted independently of the entity collections.
const BucketSyncQueue = "sync_queue"

// Queue is the durable, ordered log of pending sync operations.
//
// Entries keep their enqueue order through every operation; nothing here
// reorders the log. Enqueue is a full read-modify-write under the store
// mutex, so rapid concurrent enqueues cannot lose entries.
type Queue struct {
	store *Store
}

func NewQueue(store *Store) *Queue {
	return &Queue{store: store}
}

// Enqueue appends a fresh pending operation and persists the full queue.
// The data payload is marshaled as-is; pass a json.RawMessage to carry
// pre-encoded bytes verbatim.
func (q *Queue) Enqueue(ctx context.Context, typ core.OperationType, entity core.EntityKind, data any) (core.SyncOperation, error) {
	var raw json.RawMessage
	switch d := data.(type) {
	case json.RawMessage:
		raw = d
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return core.SyncOperation{}, fmt.Errorf("encode operation data: %w", err)
		}
		raw = encoded
	}

	op, err := core.NewSyncOperation(typ, entity, raw)
	if err != nil {
		return core.SyncOperation{}, err
	}

	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	ops, err := q.read(ctx)
	if err != nil {
		return core.SyncOperation{}, err
	}
	ops = append(ops, op)
	if err := q.write(ctx, ops); err != nil {
		return core.SyncOperation{}, err
	}
	return op, nil
}

// All returns the full persisted queue, including synced entries that
// have not been compacted away yet.
func (q *Queue) All(ctx context.Context) ([]core.SyncOperation, error) {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()
	return q.read(ctx)
}

// Pending returns the operations still awaiting sync, in enqueue order.
func (q *Queue) Pending(ctx context.Context) ([]core.SyncOperation, error) {
	ops, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]core.SyncOperation, 0, len(ops))
	for _, op := range ops {
		if !op.Synced {
			pending = append(pending, op)
		}
	}
	return pending, nil
}

// PendingCount returns the number of pending operations.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	pending, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// MarkSynced flips the synced flag on the given ids and persists.
func (q *Queue) MarkSynced(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	ops, err := q.read(ctx)
	if err != nil {
		return err
	}
	for i := range ops {
		if wanted[ops[i].ID] {
			ops[i].Synced = true
		}
	}
	return q.write(ctx, ops)
}

// Compact rewrites the queue retaining only pending entries. Idempotent;
// it never removes a pending entry.
func (q *Queue) Compact(ctx context.Context) error {
	q.store.mu.Lock()
	defer q.store.mu.Unlock()

	ops, err := q.read(ctx)
	if err != nil {
		return err
	}
	kept := make([]core.SyncOperation, 0, len(ops))
	for _, op := range ops {
		if !op.Synced {
			kept = append(kept, op)
		}
	}
	if len(kept) == len(ops) {
		return nil
	}
	return q.write(ctx, kept)
}

func (q *Queue) read(ctx context.Context) ([]core.SyncOperation, error) {
	raws, err := q.store.readBucket(ctx, BucketSyncQueue)
	if err != nil {
		return nil, err
	}
	ops := make([]core.SyncOperation, 0, len(raws))
	for _, raw := range raws {
		var op core.SyncOperation
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("decode queued operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (q *Queue) write(ctx context.Context, ops []core.SyncOperation) error {
	raws := make([]json.RawMessage, 0, len(ops))
	for _, op := range ops {
		encoded, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("encode queued operation: %w", err)
		}
		raws = append(raws, encoded)
	}
	return q.store.writeBucket(ctx, BucketSyncQueue, raws)
}
