// Package store keeps customers and their AI-context presets in SQLite.
//
// Rows are ordered by sort_order. New rows go ten past the current maximum
// and Reorder rewrites the whole list as 0, 10, 20, ... so there is room to
// insert without renumbering. Concurrent writers are last-write-wins.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an id does not exist.
var ErrNotFound = errors.New("store: not found")

const sortStep = 10

// Customer is an advertiser account.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

// Preset is a saved goal/issues/tasks context for one customer.
type Preset struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Name       string    `json:"name"`
	Goal       string    `json:"goal"`
	Issues     string    `json:"issues"`
	Tasks      string    `json:"tasks"`
	SortOrder  int       `json:"sortOrder"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS presets (
	id TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	name TEXT NOT NULL,
	goal TEXT NOT NULL DEFAULT '',
	issues TEXT NOT NULL DEFAULT '',
	tasks TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_presets_customer ON presets(customer_id, sort_order);
`

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: configure: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nextSortOrder(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, query string, args ...any) (int, error) {
	var top sql.NullInt64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&top); err != nil {
		return 0, err
	}
	if !top.Valid {
		return 0, nil
	}
	return int(top.Int64) + sortStep, nil
}

// reorder rewrites sort_order for ids in one transaction. Every id must
// match a row selected by where.
func (s *Store) reorder(ctx context.Context, table, where string, scope []any, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()
	q := fmt.Sprintf("UPDATE %s SET sort_order = ? WHERE id = ?%s", table, where)
	for i, id := range ids {
		args := append([]any{i * sortStep, id}, scope...)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("store: reorder %s: %w", table, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s %s", ErrNotFound, table, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func newID() string { return uuid.NewString() }
