// Package store persists commentary entries, session metrics snapshots, and
// the aggregate style profile using SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// New initializes the SQLite database at the given path. An empty path is
// rejected: the driver would open a private in-memory database per
// connection and every write would silently vanish.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the required tables.
func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS commentary_entries (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			content TEXT NOT NULL,
			from_user INTEGER NOT NULL DEFAULT 0,
			app_name TEXT,
			window_title TEXT,
			stuck_label TEXT,
			suggestion_json TEXT,
			metrics_json TEXT,
			created_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_session
			ON commentary_entries(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			metrics_json TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS style_profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			sessions_observed INTEGER NOT NULL DEFAULT 0,
			average_wpm REAL NOT NULL DEFAULT 0,
			dominant_mood TEXT NOT NULL DEFAULT 'focused',
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
