package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/types"
)

// UpdateStyleProfile folds one observed metrics snapshot into the running
// aggregate. The average WPM is a running mean over sessions observed; the
// dominant mood is simply the latest non-default mood seen (it shifts slowly
// because commentary completions are infrequent).
func (s *Store) UpdateStyleProfile(m types.SessionMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.styleProfileLocked()
	if err != nil {
		return err
	}

	n := float64(profile.SessionsObserved)
	profile.AverageWPM = (profile.AverageWPM*n + m.WordsPerMinute) / (n + 1)
	profile.SessionsObserved++
	if m.Mood != "" {
		profile.DominantMood = m.Mood
	}
	profile.UpdatedAt = time.Now()

	_, err = s.db.Exec(
		`INSERT INTO style_profile (id, sessions_observed, average_wpm, dominant_mood, updated_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			sessions_observed = excluded.sessions_observed,
			average_wpm = excluded.average_wpm,
			dominant_mood = excluded.dominant_mood,
			updated_at = excluded.updated_at`,
		profile.SessionsObserved, profile.AverageWPM, string(profile.DominantMood), profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update style profile: %w", err)
	}
	return nil
}

// StyleProfile returns the current aggregate profile.
func (s *Store) StyleProfile() (types.StyleProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.styleProfileLocked()
}

func (s *Store) styleProfileLocked() (types.StyleProfile, error) {
	var p types.StyleProfile
	var mood string
	err := s.db.QueryRow(
		`SELECT sessions_observed, average_wpm, dominant_mood, updated_at
		 FROM style_profile WHERE id = 1`,
	).Scan(&p.SessionsObserved, &p.AverageWPM, &mood, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StyleProfile{DominantMood: types.MoodFocused}, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to query style profile: %w", err)
	}
	p.DominantMood = types.WritingMood(mood)
	return p, nil
}
