package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"inkwell/internal/logging"
	"inkwell/internal/types"
)

// SaveEntry inserts one immutable commentary entry. Entries are append-only:
// there is no update path, only soft deletion.
func (s *Store) SaveEntry(entry *types.CommentaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var suggestionJSON, metricsJSON sql.NullString
	if entry.Suggestion != nil {
		data, err := json.Marshal(entry.Suggestion)
		if err != nil {
			return fmt.Errorf("failed to marshal suggestion: %w", err)
		}
		suggestionJSON = sql.NullString{String: string(data), Valid: true}
	}
	if entry.MetricsSnapshot != nil {
		data, err := json.Marshal(entry.MetricsSnapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		metricsJSON = sql.NullString{String: string(data), Valid: true}
	}

	logging.StoreDebug("saving entry id=%s session=%s from_user=%v len=%d",
		entry.ID, entry.SessionID, entry.FromUser, len(entry.Content))

	_, err := s.db.Exec(
		`INSERT INTO commentary_entries
			(id, session_id, content, from_user, app_name, window_title, stuck_label, suggestion_json, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, entry.Content, boolToInt(entry.FromUser),
		entry.AppName, entry.WindowTitle, entry.StuckLabel,
		suggestionJSON, metricsJSON, entry.CreatedAt,
	)
	if err != nil {
		logging.StoreError("failed to save entry %s: %v", entry.ID, err)
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

// FetchRecent returns the most recent non-deleted entries for a session,
// oldest first, limited to limit rows.
func (s *Store) FetchRecent(sessionID string, limit int) ([]*types.CommentaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, content, from_user, app_name, window_title,
		        stuck_label, suggestion_json, metrics_json, created_at
		 FROM commentary_entries
		 WHERE session_id = ? AND deleted_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.CommentaryEntry
	for rows.Next() {
		var e types.CommentaryEntry
		var fromUser int
		var appName, windowTitle, stuckLabel sql.NullString
		var suggestionJSON, metricsJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Content, &fromUser,
			&appName, &windowTitle, &stuckLabel,
			&suggestionJSON, &metricsJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.FromUser = fromUser != 0
		e.AppName = appName.String
		e.WindowTitle = windowTitle.String
		e.StuckLabel = stuckLabel.String
		if suggestionJSON.Valid {
			var sug types.Suggestion
			if err := json.Unmarshal([]byte(suggestionJSON.String), &sug); err == nil {
				e.Suggestion = &sug
			}
		}
		if metricsJSON.Valid {
			var m types.SessionMetrics
			if err := json.Unmarshal([]byte(metricsJSON.String), &m); err == nil {
				e.MetricsSnapshot = &m
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first for conversational context.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// SoftDeleteEntry marks an entry deleted without removing the row.
func (s *Store) SoftDeleteEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE commentary_entries SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
