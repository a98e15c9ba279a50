package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Bucket names for the entity collections.
const (
	BucketExpenses          = "expenses"
	BucketBudgets           = "budgets"
	BucketSavingsGoals      = "savings_goals"
	BucketRecurringExpenses = "recurring_expenses"
)

// Record is anything addressable by id inside a collection.
type Record interface {
	EntityID() string
}

// Collection gives typed access to one bucket. Saves prepend, so the
// collection stays most-recent-first by insertion.
type Collection[T Record] struct {
	store  *Store
	bucket string
}

func NewCollection[T Record](store *Store, bucket string) *Collection[T] {
	return &Collection[T]{store: store, bucket: bucket}
}

// Save prepends the record and persists the full updated list.
func (c *Collection[T]) Save(ctx context.Context, rec T) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	raws, err := c.store.readBucket(ctx, c.bucket)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	raws = append([]json.RawMessage{encoded}, raws...)
	return c.store.writeBucket(ctx, c.bucket, raws)
}

// Update replaces the record with the given id in place. Absent ids are
// a logged no-op, not an error.
func (c *Collection[T]) Update(ctx context.Context, id string, rec T) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	raws, err := c.store.readBucket(ctx, c.bucket)
	if err != nil {
		return err
	}
	for i, raw := range raws {
		var existing T
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode record in %s: %w", c.bucket, err)
		}
		if existing.EntityID() != id {
			continue
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		raws[i] = encoded
		return c.store.writeBucket(ctx, c.bucket, raws)
	}

	slog.DebugContext(ctx, "Update skipped, id not found", "bucket", c.bucket, "id", id)
	return nil
}

// Delete filters out the record with the given id and persists.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	raws, err := c.store.readBucket(ctx, c.bucket)
	if err != nil {
		return err
	}
	kept := make([]json.RawMessage, 0, len(raws))
	for _, raw := range raws {
		var existing T
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode record in %s: %w", c.bucket, err)
		}
		if existing.EntityID() == id {
			continue
		}
		kept = append(kept, raw)
	}
	return c.store.writeBucket(ctx, c.bucket, kept)
}

// All returns the full list, or an empty slice if the bucket does not
// exist yet.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.all(ctx)
}

func (c *Collection[T]) all(ctx context.Context) ([]T, error) {
	raws, err := c.store.readBucket(ctx, c.bucket)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(raws))
	for _, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode record in %s: %w", c.bucket, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get returns the record with the given id, reporting whether it exists.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	records, err := c.All(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, rec := range records {
		if rec.EntityID() == id {
			return rec, true, nil
		}
	}
	return zero, false, nil
}

// Replace overwrites the whole collection. Used by pull-latest
// reconciliation, which rebuilds the list from merged remote state.
func (c *Collection[T]) Replace(ctx context.Context, records []T) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	raws := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		raws = append(raws, encoded)
	}
	return c.store.writeBucket(ctx, c.bucket, raws)
}
