// Package sqlite provides a record.Store backed by a local SQLite database.
// Documents are stored as JSON rows, one table for all collections, so the
// store stays as schema-less as the in-memory implementation while surviving
// process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/reslab/reslab/logging"
	"github.com/reslab/reslab/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	fields     TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (collection, id)
);
`

// Store is a SQLite backed record.Store.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Options configure the SQLite store.
type Options struct {
	Logger logging.Logger
}

// Open opens (or creates) a SQLite database at the given path and ensures the
// documents table exists. Use ":memory:" for an in-memory database (useful
// for tests).
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	opts.Logger.Info("record.sqlite.opened", "path", path)

	return &Store{db: db, logger: opts.Logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// List returns all documents in the collection matching the optional filter,
// ordered by identifier. Filtering happens after decoding since documents are
// schema-less JSON.
func (s *Store) List(ctx context.Context, collection string, filter record.Fields) ([]record.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, fields FROM documents WHERE collection = ? ORDER BY id", collection)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []record.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", collection, err)
		}
		fields := record.Fields{}
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decoding document %s: %w", id, err)
		}
		if len(filter) > 0 && !fields.Matches(filter) {
			continue
		}
		docs = append(docs, record.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// Get resolves a single document or record.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (record.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT fields FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Document{}, record.ErrNotFound
	}
	if err != nil {
		return record.Document{}, fmt.Errorf("getting document %s: %w", id, err)
	}
	fields := record.Fields{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return record.Document{}, fmt.Errorf("decoding document %s: %w", id, err)
	}
	return record.Document{ID: id, Fields: fields}, nil
}

// Create stores the fields under a freshly generated identifier and returns it.
func (s *Store) Create(ctx context.Context, collection string, fields record.Fields) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}
	id := record.NewDocumentID()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)", collection, id, string(raw)); err != nil {
		return "", fmt.Errorf("inserting into %s: %w", collection, err)
	}
	s.logger.Debug("record.sqlite.created", "collection", collection, "id", id)
	return id, nil
}

// Update merges the given fields into an existing document inside a single
// transaction, failing with record.ErrNotFound if the identifier is unknown.
func (s *Store) Update(ctx context.Context, collection, id string, fields record.Fields) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		"SELECT fields FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return record.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading document %s: %w", id, err)
	}

	existing := record.Fields{}
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		return fmt.Errorf("decoding document %s: %w", id, err)
	}
	for k, v := range fields {
		existing[k] = v
	}
	merged, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET fields = ?, updated_at = datetime('now') WHERE collection = ? AND id = ?",
		string(merged), collection, id); err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	return tx.Commit()
}
