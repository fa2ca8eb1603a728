package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/types"
)

// StartSession records the beginning of a writing session.
func (s *Store) StartSession(sessionID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)`,
		sessionID, startedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// FinalizeSession stores the final metrics snapshot and end time.
func (s *Store) FinalizeSession(metrics types.SessionMetrics, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE sessions SET ended_at = ?, metrics_json = ? WHERE id = ?`,
		endedAt, string(data), metrics.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize session: %w", err)
	}
	return nil
}

// LatestSession returns the metrics snapshot of the most recently started
// session that has one, or nil when none exists.
func (s *Store) LatestSession() (*types.SessionMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(
		`SELECT metrics_json FROM sessions
		 WHERE metrics_json IS NOT NULL
		 ORDER BY started_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest session: %w", err)
	}

	var m types.SessionMetrics
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return &m, nil
}
