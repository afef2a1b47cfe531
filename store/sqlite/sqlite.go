/*
Package sqlite provides a SQLite-backed implementation of the document store.

PURPOSE:
  Persists the path-addressed document tree in a single table. Each row holds
  one leaf document keyed by its full slash-separated path; interior reads
  assemble the subtree from a prefix scan. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

SCHEMA:
  documents:
    path       TEXT PRIMARY KEY   full path, e.g. users/u1/expenses/2025-03/<id>
    doc        TEXT NOT NULL      JSON document body
    updated_at TEXT NOT NULL      RFC 3339 write timestamp

  Prefix scans use "path LIKE ? || '/%'", which the primary key index serves.

SUBTREE SEMANTICS:
  Set replaces the whole subtree under a path: the write deletes every row
  at or below the path before inserting, inside one transaction. Delete does
  the same without the insert. A path therefore holds either one document or
  children, never both.

SUBSCRIPTIONS:
  Change notifications are in-process only, routed through store.Hub after
  the transaction commits. A second process writing the same file will not
  be observed; the deployment model is one server per database file.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/store.go: Interface definition and document model
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/billing-engine/store"
)

// =============================================================================
// STORE
// =============================================================================

type Store struct {
	db  *sql.DB
	hub *store.Hub
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an ephemeral database in tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY between the pool's writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, hub: store.NewHub()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		path       TEXT PRIMARY KEY,
		doc        TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT doc FROM documents WHERE path = ?", path).Scan(&doc)
	switch {
	case err == nil:
		return json.RawMessage(doc), nil
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, doc FROM documents WHERE path LIKE ? || '/%'", path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	defer rows.Close()

	prefix := path + "/"
	tree := make(map[string]any)
	found := false
	for rows.Next() {
		var p, d string
		if err := rows.Scan(&p, &d); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		found = true
		insert(tree, strings.Split(strings.TrimPrefix(p, prefix), "/"), json.RawMessage(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	if !found {
		return nil, nil
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", path, err)
	}
	return raw, nil
}

func insert(tree map[string]any, segments []string, doc json.RawMessage) {
	if len(segments) == 1 {
		tree[segments[0]] = doc
		return
	}
	child, ok := tree[segments[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		tree[segments[0]] = child
	}
	insert(child, segments[1:], doc)
}

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) Set(ctx context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := removeSubtree(ctx, tx, path); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO documents (path, doc, updated_at) VALUES (?, ?, ?)",
			path, string(raw), time.Now().UTC().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	s.notify(path)
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		doc := make(map[string]any)
		var existing string
		err := tx.QueryRowContext(ctx,
			"SELECT doc FROM documents WHERE path = ?", path).Scan(&existing)
		switch {
		case err == nil:
			if err := json.Unmarshal([]byte(existing), &doc); err != nil {
				return fmt.Errorf("decode: %w", err)
			}
		case err != sql.ErrNoRows:
			return err
		}
		for k, v := range fields {
			doc[k] = v
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (path, doc, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
			path, string(raw), time.Now().UTC().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}

	s.notify(path)
	return nil
}

func (s *Store) Push(ctx context.Context, path string, value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	id := uuid.NewString()
	child := path + "/" + id

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (path, doc, updated_at) VALUES (?, ?, ?)",
		child, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("push %s: %w", path, err)
	}

	s.notify(child)
	return id, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return removeSubtree(ctx, tx, path)
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	s.notify(path)
	return nil
}

func removeSubtree(ctx context.Context, tx *sql.Tx, path string) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE path = ? OR path LIKE ? || '/%'", path, path)
	return err
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe delivers the current value immediately, then again on every
// committed change at or under path.
func (s *Store) Subscribe(path string, fn func(json.RawMessage)) func() {
	cancel := s.hub.Add(path, fn)

	current, err := s.Get(context.Background(), path)
	if err == nil {
		fn(current)
	}

	return cancel
}

func (s *Store) notify(changedPath string) {
	s.hub.Notify(changedPath, func(subPath string) json.RawMessage {
		raw, err := s.Get(context.Background(), subPath)
		if err != nil {
			return nil
		}
		return raw
	})
}
