// file: internal/memory/sqlite.go
package memory

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite" // Registers the "sqlite" driver.
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memory_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	entry_key  TEXT NOT NULL UNIQUE,
	category   TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_entries_category ON memory_entries(category);
`

// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" gives a private
// in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store requires a path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, errors.Wrapf(err, "failed to create directory for %s", path)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database %s", path)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize memory schema")
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return errors.Wrap(s.db.Close(), "failed to close sqlite database")
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT id, entry_key, category, content, created_at FROM memory_entries`
	var args []any
	if f.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY seq`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory entries")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate memory entries")
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, entry_key, category, content, created_at FROM memory_entries WHERE entry_key = ?`, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, e Entry) (*Entry, error) {
	e, err := prepare(e, s.now())
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO memory_entries (id, entry_key, category, content, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(entry_key) DO UPDATE SET category = excluded.category, content = excluded.content`,
		e.ID, e.Key, e.Category, e.Content, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to store memory entry %q", e.Key)
	}
	return s.Get(ctx, e.Key)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var e Entry
	var created string
	if err := sc.Scan(&e.ID, &e.Key, &e.Category, &e.Content, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan memory entry")
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, errors.Wrapf(err, "memory entry %q has a bad timestamp", e.Key)
	}
	e.CreatedAt = t
	return &e, nil
}
