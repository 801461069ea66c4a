package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLite is a durable Store backed by a local SQLite database. Conditional
// writes use a per-row version column, giving the same compare-and-swap
// semantics an object store exposes through ETag preconditions.
type SQLite struct {
	db *sql.DB

	mu       sync.Mutex
	onCreate func(key string)
}

// OpenSQLite creates or opens a SQLite-backed store at the given path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging store: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// OpenSQLiteMemory creates an in-memory SQLite store (useful for testing).
func OpenSQLiteMemory() (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory store: %w", err)
	}
	// Each pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS objects (
    key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    version INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// OnCreate registers the object-created hook. Must be called before writes begin.
func (s *SQLite) OnCreate(fn func(key string)) {
	s.mu.Lock()
	s.onCreate = fn
	s.mu.Unlock()
}

func (s *SQLite) notifyCreate(key string) {
	s.mu.Lock()
	hook := s.onCreate
	s.mu.Unlock()
	if hook != nil {
		hook(key)
	}
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, int64, error) {
	var data []byte
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version FROM objects WHERE key = ?`, key,
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, version, nil
}

func (s *SQLite) Put(ctx context.Context, key string, data []byte) error {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO objects (key, data, version) VALUES (?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, version = objects.version + 1
		RETURNING version`,
		key, data).Scan(&version)
	if err != nil {
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	if version == 1 {
		s.notifyCreate(key)
	}
	return nil
}

func (s *SQLite) PutIf(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	if expected == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO objects (key, data, version) VALUES (?, ?, 1)
			ON CONFLICT(key) DO NOTHING`,
			key, data)
		if err != nil {
			return 0, fmt.Errorf("creating object %s: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("creating object %s: %w", key, err)
		}
		if n == 0 {
			return 0, ErrVersionConflict
		}
		s.notifyCreate(key)
		return 1, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE objects SET data = ?, version = version + 1
		WHERE key = ? AND version = ?`,
		data, key, expected)
	if err != nil {
		return 0, fmt.Errorf("replacing object %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("replacing object %s: %w", key, err)
	}
	if n == 0 {
		return 0, ErrVersionConflict
	}
	return expected + 1, nil
}

func (s *SQLite) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM objects WHERE key = ?`, key,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking object %s: %w", key, err)
	}
	return true, nil
}

func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM objects WHERE key >= ? AND key < ? ORDER BY key`,
		prefix, prefix+"\xff")
	if err != nil {
		return nil, fmt.Errorf("listing prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("listing prefix %s: %w", prefix, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) DeletePrefix(ctx context.Context, prefix string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM objects WHERE key >= ? AND key < ?`, prefix, prefix+"\xff"); err != nil {
		return fmt.Errorf("deleting prefix %s: %w", prefix, err)
	}
	return nil
}
