package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	origin TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (origin, key)
);
`

// Store is a SQLite file holding one key-value table partitioned by origin.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path (creating parent dirs and schema).
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database. Safe to call twice.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Origin returns the bucket for one origin. Buckets of different origins never see each other's keys.
func (s *Store) Origin(name string) *Bucket {
	return &Bucket{store: s, origin: name}
}

// Origins lists origins that have at least one key.
func (s *Store) Origins() ([]string, error) {
	if s.db == nil {
		return nil, errClosed
	}
	rows, err := s.db.Query("SELECT DISTINCT origin FROM kv ORDER BY origin")
	if err != nil {
		return nil, fmt.Errorf("origins: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("origins scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

var errClosed = errors.New("sqlite store closed")

// Bucket is one origin's view of the store. It implements app.KVStore.
type Bucket struct {
	store  *Store
	origin string
}

// Name returns the origin name.
func (b *Bucket) Name() string { return b.origin }

// Get returns the value for key and whether it exists.
func (b *Bucket) Get(key string) (string, bool, error) {
	if b.store.db == nil {
		return "", false, errClosed
	}
	var v string
	err := b.store.db.QueryRow("SELECT value FROM kv WHERE origin = ? AND key = ?", b.origin, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s/%s: %w", b.origin, key, err)
	}
	return v, true, nil
}

// Set upserts key. The row is created on first write and never deleted.
func (b *Bucket) Set(key, value string) error {
	if b.store.db == nil {
		return errClosed
	}
	_, err := b.store.db.Exec(`INSERT INTO kv (origin, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(origin, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.origin, key, value, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("kv set %s/%s: %w", b.origin, key, err)
	}
	return nil
}
