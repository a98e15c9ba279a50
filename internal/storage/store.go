package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SchemaVersion is the version of the bucket payload envelope. Decoding
// rejects envelopes with any other version rather than guessing at their
// layout.
const SchemaVersion = 1

// Meta keys used by the sync engine.
const (
	MetaLastDrain = "last_drain"
	MetaInstallID = "install_id"
)

// Store is the durable local store: named buckets, each holding one
// serialized list of records, plus a small meta table for bookkeeping.
//
// Every bucket mutation is read-full/modify/write-full and durable before
// the call returns. The mutex serializes those read-modify-write cycles;
// the original design relied on single-threaded execution for this, here
// it is explicit.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

type envelope struct {
	SchemaVersion int               `json:"schema_version"`
	Records       []json.RawMessage `json:"records"`
}

// Open opens (creating if needed) the SQLite database at path and runs
// pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(path); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureInstallID(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// ensureInstallID assigns this installation a stable identifier on first
// open, so the remote can tell installations apart once multi-device
// sync needs to.
func (s *Store) ensureInstallID(ctx context.Context) error {
	existing, err := s.GetMeta(ctx, MetaInstallID)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	return s.SetMeta(ctx, MetaInstallID, uuid.NewString())
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// readBucket returns the raw records in a bucket, or nil if the bucket
// does not exist yet.
func (s *Store) readBucket(ctx context.Context, name string) ([]json.RawMessage, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM buckets WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bucket %s: %w", name, err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("decode bucket %s: %w", name, err)
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("bucket %s: unsupported schema version %d", name, env.SchemaVersion)
	}
	return env.Records, nil
}

// writeBucket replaces the full contents of a bucket.
func (s *Store) writeBucket(ctx context.Context, name string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	payload, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Records: records})
	if err != nil {
		return fmt.Errorf("encode bucket %s: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buckets (name, payload, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name, string(payload))
	if err != nil {
		return fmt.Errorf("write bucket %s: %w", name, err)
	}
	return nil
}

// GetMeta returns the value for a meta key, or "" if unset.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta sets a meta key.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}
