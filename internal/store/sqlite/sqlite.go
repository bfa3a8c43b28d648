// Package sqlite provides a SQLite-backed implementation of the store.Store
// interface. Documents are stored as JSON rows keyed by (collection, id).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/bardofig/roozterfaceapp/internal/store"
)

// Ensure Store implements store.Store
var _ store.Store = (*Store)(nil)

// txAttempts bounds the internal retry on write conflict.
const txAttempts = 5

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY churn between concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves one document by id.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return unmarshalDocument(raw)
}

// Set writes the full document, replacing any existing content.
func (s *Store) Set(ctx context.Context, collection, id string, doc store.Document) error {
	raw, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

// Merge upserts fields into the document, leaving absent keys untouched.
func (s *Store) Merge(ctx context.Context, collection, id string, fields store.Document) error {
	return s.mergeFields(ctx, collection, id, fields, false)
}

// Update merges fields into an existing document, failing with
// store.ErrNotFound if it does not exist.
func (s *Store) Update(ctx context.Context, collection, id string, fields store.Document) error {
	return s.mergeFields(ctx, collection, id, fields, true)
}

func (s *Store) mergeFields(ctx context.Context, collection, id string, fields store.Document, mustExist bool) error {
	return s.RunTransaction(ctx, func(tx store.Tx) error {
		existing, err := tx.Get(collection, id)
		if errors.Is(err, store.ErrNotFound) {
			if mustExist {
				return err
			}
			existing = store.Document{}
		} else if err != nil {
			return err
		}
		for k, v := range fields {
			existing[k] = v
		}
		return tx.Set(collection, id, existing)
	})
}

// Delete removes a document. Deleting a missing document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Query returns all documents whose top-level field equals value.
func (s *Store) Query(ctx context.Context, collection, field, value string) ([]store.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ? AND json_extract(data, ?) = ? ORDER BY id",
		collection, "$."+field, value,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// All returns every document in the collection.
func (s *Store) All(ctx context.Context, collection string) ([]store.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY id",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// RunTransaction executes fn atomically, retrying a bounded number of times on
// write conflict. Errors returned by fn propagate unchanged.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = s.runTransactionOnce(ctx, fn)
		if !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func (s *Store) runTransactionOnce(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// tx implements store.Tx on top of a sql.Tx.
type tx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *tx) Get(collection, id string) (store.Document, error) {
	var raw string
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return unmarshalDocument(raw)
}

func (t *tx) Set(collection, id string, doc store.Document) error {
	raw, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

func (t *tx) Merge(collection, id string, fields store.Document) error {
	existing, err := t.Get(collection, id)
	if errors.Is(err, store.ErrNotFound) {
		existing = store.Document{}
	} else if err != nil {
		return err
	}
	for k, v := range fields {
		existing[k] = v
	}
	return t.Set(collection, id, existing)
}

func (t *tx) Delete(collection, id string) error {
	_, err := t.tx.ExecContext(t.ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func scanSnapshots(rows *sql.Rows) ([]store.Snapshot, error) {
	var snaps []store.Snapshot
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := unmarshalDocument(raw)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, store.Snapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return snaps, nil
}

func marshalDocument(doc store.Document) (string, error) {
	if doc == nil {
		doc = store.Document{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	return string(raw), nil
}

func unmarshalDocument(raw string) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
