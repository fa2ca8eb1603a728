package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"inkwell/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "inkwell.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") should fail, not open a throwaway database")
	}
}

func TestSessionsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkwell.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sessionID := uuid.NewString()
	if err := s.StartSession(sessionID, time.Now()); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	metrics := types.SessionMetrics{SessionID: sessionID, WordsWritten: 7}
	if err := s.FinalizeSession(metrics, time.Now()); err != nil {
		t.Fatalf("FinalizeSession: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	got, err := reopened.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if got == nil {
		t.Fatal("finalized session not visible after reopen")
	}
	if got.SessionID != sessionID || got.WordsWritten != 7 {
		t.Fatalf("wrong session after reopen: %+v", got)
	}
}

func TestSaveAndFetchRecent(t *testing.T) {
	s := newTestStore(t)
	sessionID := uuid.NewString()

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		entry := &types.CommentaryEntry{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Content:   "entry",
			FromUser:  i%2 == 0,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveEntry(entry); err != nil {
			t.Fatalf("SaveEntry: %v", err)
		}
	}

	entries, err := s.FetchRecent(sessionID, 3)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Oldest-first ordering within the window.
	if !entries[0].CreatedAt.Before(entries[2].CreatedAt) {
		t.Fatal("entries not oldest-first")
	}
}

func TestSaveEntryWithSnapshots(t *testing.T) {
	s := newTestStore(t)

	metrics := &types.SessionMetrics{
		SessionID:    "sess",
		WordsWritten: 42,
		FocusScore:   0.8,
		Mood:         types.MoodFocused,
	}
	sug := &types.Suggestion{ID: "s1", Text: "better", Explanation: "why", Confidence: 0.7}
	entry := &types.CommentaryEntry{
		ID:              uuid.NewString(),
		SessionID:       "sess",
		Content:         "nice paragraph",
		AppName:         "Pages",
		StuckLabel:      "editing_loop",
		Suggestion:      sug,
		MetricsSnapshot: metrics,
		CreatedAt:       time.Now(),
	}
	if err := s.SaveEntry(entry); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	got, err := s.FetchRecent("sess", 10)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	e := got[0]
	if diff := cmp.Diff(sug, e.Suggestion); diff != "" {
		t.Fatalf("suggestion mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(metrics, e.MetricsSnapshot); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
	if e.StuckLabel != "editing_loop" || e.AppName != "Pages" {
		t.Fatalf("context fields wrong: %+v", e)
	}
}

func TestSoftDelete(t *testing.T) {
	s := newTestStore(t)

	entry := &types.CommentaryEntry{
		ID:        uuid.NewString(),
		SessionID: "sess",
		Content:   "to be removed",
		CreatedAt: time.Now(),
	}
	if err := s.SaveEntry(entry); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}
	if err := s.SoftDeleteEntry(entry.ID); err != nil {
		t.Fatalf("SoftDeleteEntry: %v", err)
	}

	got, err := s.FetchRecent("sess", 10)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("soft-deleted entry still returned: %+v", got)
	}

	// Deleting again reports not found.
	if err := s.SoftDeleteEntry(entry.ID); err == nil {
		t.Fatal("expected error on double delete")
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	m := types.SessionMetrics{
		SessionID:    uuid.NewString(),
		StartedAt:    time.Now().Add(-time.Hour),
		WordsWritten: 500,
		Mood:         types.MoodFlowing,
	}
	if err := s.StartSession(m.SessionID, m.StartedAt); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := s.FinalizeSession(m, time.Now()); err != nil {
		t.Fatalf("FinalizeSession: %v", err)
	}

	got, err := s.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if got == nil || got.WordsWritten != 500 || got.Mood != types.MoodFlowing {
		t.Fatalf("latest session wrong: %+v", got)
	}
}

func TestStyleProfileRunningAverage(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpdateStyleProfile(types.SessionMetrics{WordsPerMinute: 10, Mood: types.MoodFocused}); err != nil {
		t.Fatalf("UpdateStyleProfile: %v", err)
	}
	if err := s.UpdateStyleProfile(types.SessionMetrics{WordsPerMinute: 20, Mood: types.MoodFlowing}); err != nil {
		t.Fatalf("UpdateStyleProfile: %v", err)
	}

	p, err := s.StyleProfile()
	if err != nil {
		t.Fatalf("StyleProfile: %v", err)
	}
	if p.SessionsObserved != 2 {
		t.Fatalf("SessionsObserved=%d, want 2", p.SessionsObserved)
	}
	if p.AverageWPM != 15 {
		t.Fatalf("AverageWPM=%v, want 15", p.AverageWPM)
	}
	if p.DominantMood != types.MoodFlowing {
		t.Fatalf("DominantMood=%s, want flowing", p.DominantMood)
	}
}
