// Package types provides shared type definitions used across inkwell packages.
// This package exists to break import cycles between telemetry, lane, and
// coordinator. Types in this package should be foundational data structures
// with no complex dependencies.
package types

import (
	"time"
)

// =============================================================================
// WRITING CONTEXT - What the user is writing right now
// =============================================================================

// WritingContext describes the focused text field as reported by the
// platform focus observer. A nil WritingContext means no focused element.
type WritingContext struct {
	AppName         string `json:"app_name"`
	WindowTitle     string `json:"window_title"`
	SelectedText    string `json:"selected_text,omitempty"`
	SurroundingText string `json:"surrounding_text,omitempty"`
	CursorPosition  int    `json:"cursor_position,omitempty"`
}

// AnalysisText returns the text a trigger should analyze: the explicit
// selection when present, otherwise the surrounding text.
func (w *WritingContext) AnalysisText() string {
	if w == nil {
		return ""
	}
	if w.SelectedText != "" {
		return w.SelectedText
	}
	return w.SurroundingText
}

// TriggerReason tags why a generation was requested.
type TriggerReason string

const (
	TriggerProactive     TriggerReason = "proactive"
	TriggerUserRequested TriggerReason = "user_requested"
	TriggerStuckDetected TriggerReason = "stuck_detected"
	TriggerEditingLoop   TriggerReason = "editing_loop"
)

// GenerationContext is the immutable input to a suggestion trigger.
// Created fresh per trigger; never mutated.
type GenerationContext struct {
	Text         string        `json:"text"`
	SelectedText string        `json:"selected_text,omitempty"`
	DocumentType string        `json:"document_type,omitempty"`
	Section      string        `json:"section,omitempty"`
	Tone         string        `json:"tone,omitempty"`
	Reason       TriggerReason `json:"reason"`
}

// =============================================================================
// SUGGESTIONS
// =============================================================================

// ImprovementTag classifies what a suggestion improves.
type ImprovementTag string

const (
	ImproveClarity     ImprovementTag = "clarity"
	ImproveConciseness ImprovementTag = "conciseness"
	ImproveTone        ImprovementTag = "tone"
	ImproveGrammar     ImprovementTag = "grammar"
	ImproveStructure   ImprovementTag = "structure"
	ImproveWordChoice  ImprovementTag = "word_choice"
)

// ParseImprovementTag maps a raw tag string to a known ImprovementTag.
// Unknown tags return ("", false) and are dropped by callers.
func ParseImprovementTag(s string) (ImprovementTag, bool) {
	switch ImprovementTag(s) {
	case ImproveClarity, ImproveConciseness, ImproveTone,
		ImproveGrammar, ImproveStructure, ImproveWordChoice:
		return ImprovementTag(s), true
	}
	return "", false
}

// Suggestion is one structured rewrite proposal decoded from model output.
// Immutable once produced. The ID is assigned at emission time and is not
// stable across partial-to-final transitions.
type Suggestion struct {
	ID           string           `json:"id"`
	OriginalText string           `json:"original_text,omitempty"`
	Text         string           `json:"text"`
	Explanation  string           `json:"explanation"`
	Improvements []ImprovementTag `json:"improvements,omitempty"`
	Confidence   float64          `json:"confidence"`
	CreatedAt    time.Time        `json:"created_at"`
}

// =============================================================================
// SESSION METRICS - Behavioral telemetry snapshot
// =============================================================================

// WritingMood is the classified behavioral state of the current session.
type WritingMood string

const (
	MoodFlowing    WritingMood = "flowing"
	MoodStruggling WritingMood = "struggling"
	MoodDistracted WritingMood = "distracted"
	MoodFatigued   WritingMood = "fatigued"
	MoodFocused    WritingMood = "focused"
)

// SessionMetrics is a read-only snapshot of the telemetry aggregate.
// The aggregator is the single writer; consumers only ever see copies.
type SessionMetrics struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`

	CharactersTyped int `json:"characters_typed"`
	WordsWritten    int `json:"words_written"`
	TotalDeletions  int `json:"total_deletions"`

	PauseCount        int           `json:"pause_count"`
	TotalPauseTime    time.Duration `json:"total_pause_time"`
	LongestPause      time.Duration `json:"longest_pause"`
	AveragePause      time.Duration `json:"average_pause"`
	ActiveWritingTime time.Duration `json:"active_writing_time"`

	AppSwitchCount     int `json:"app_switch_count"`
	DistractionCount   int `json:"distraction_count"`
	FrustrationSignals int `json:"frustration_signals"`
	RewriteCount       int `json:"rewrite_count"`

	WordsPerMinute      float64 `json:"words_per_minute"`
	PeakWordsPerMinute  float64 `json:"peak_words_per_minute"`
	CharactersPerMinute float64 `json:"characters_per_minute"`
	DeletionRate        float64 `json:"deletion_rate"`

	FocusScore float64     `json:"focus_score"`
	Mood       WritingMood `json:"mood"`
}

// =============================================================================
// LANE / COORDINATOR STATES
// =============================================================================

// StreamPhase is the lifecycle phase of a streaming lane invocation.
type StreamPhase string

const (
	PhaseIdle      StreamPhase = "idle"
	PhaseStarting  StreamPhase = "starting"
	PhaseStreaming StreamPhase = "streaming"
	PhaseComplete  StreamPhase = "complete"
	PhaseError     StreamPhase = "error"
)

// StreamState is the published state of one lane. Exactly one instance per
// lane per invocation; superseded atomically on cancellation.
type StreamState struct {
	Phase   StreamPhase `json:"phase"`
	Index   int         `json:"index,omitempty"`   // progress during streaming
	Total   int         `json:"total,omitempty"`   // expected item count
	Message string      `json:"message,omitempty"` // human-readable error category
}

// CoordinatorState is the top-level orchestration state.
type CoordinatorState string

const (
	StateIdle       CoordinatorState = "idle"
	StateObserving  CoordinatorState = "observing"
	StateAnalyzing  CoordinatorState = "analyzing"
	StateGenerating CoordinatorState = "generating"
	StateDisplaying CoordinatorState = "displaying"
	StateError      CoordinatorState = "error"
)

// =============================================================================
// COMMENTARY ENTRIES
// =============================================================================

// CommentaryEntry is one immutable transcript record. Entries are append-only
// and never mutated after creation; removal is a soft delete in the store.
type CommentaryEntry struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	Content         string          `json:"content"`
	FromUser        bool            `json:"from_user"`
	AppName         string          `json:"app_name,omitempty"`
	WindowTitle     string          `json:"window_title,omitempty"`
	StuckLabel      string          `json:"stuck_label,omitempty"`
	Suggestion      *Suggestion     `json:"suggestion,omitempty"`
	MetricsSnapshot *SessionMetrics `json:"metrics_snapshot,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// StyleProfile is the running aggregate of observed writing behavior,
// updated after each completed commentary.
type StyleProfile struct {
	SessionsObserved int         `json:"sessions_observed"`
	AverageWPM       float64     `json:"average_wpm"`
	DominantMood     WritingMood `json:"dominant_mood"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
