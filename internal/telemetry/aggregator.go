// Package telemetry aggregates raw typing, pause, and app-switch events into
// session metrics and a mood classification. The aggregator is a pure,
// synchronous accumulator: it owns the only mutable SessionMetrics and
// exposes read-only snapshots to everything else.
package telemetry

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"inkwell/internal/logging"
	"inkwell/internal/types"
)

const (
	// A typing gap longer than this counts as a pause rather than active
	// writing time.
	pauseThreshold = 3 * time.Second

	// Burst deletions inside this trailing window signal frustration.
	deletionWindow = 10 * time.Second
	// More deletion events than this inside the window is one frustration
	// signal.
	deletionBurstLimit = 20

	// Derived rates stay at zero until this much active writing time has
	// accumulated; earlier estimates are too noisy to act on.
	minActiveForRates = 30 * time.Second

	// An app switch away longer than this counts as a distraction.
	distractionThreshold = 30 * time.Second

	// Rough prose convention: five characters per word.
	charsPerWord = 5
)

// Aggregator accumulates writing activity into SessionMetrics.
// All methods are synchronous; the aggregator is the single writer.
type Aggregator struct {
	mu  sync.Mutex
	clk clock.Clock

	collecting bool
	m          types.SessionMetrics

	lastLength   int
	lastTypingAt time.Time
	deletions    []time.Time // trailing deletion event window

	// Current typing burst, closed by the next pause.
	burstWords    int
	burstDuration time.Duration
}

// NewAggregator creates an aggregator using the given clock.
// Pass clock.New() in production and clock.NewMock() in tests.
func NewAggregator(clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	return &Aggregator{clk: clk}
}

// StartCollecting begins a new session. Any previous session state is
// discarded.
func (a *Aggregator) StartCollecting() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.collecting = true
	a.m = types.SessionMetrics{
		SessionID:  uuid.NewString(),
		StartedAt:  a.clk.Now(),
		FocusScore: 1.0,
		Mood:       types.MoodFocused,
	}
	a.lastLength = 0
	a.lastTypingAt = time.Time{}
	a.deletions = nil
	a.burstWords = 0
	a.burstDuration = 0

	logging.Telemetry("session %s started", a.m.SessionID)
}

// StopCollecting finalizes derived rates and ends the session.
func (a *Aggregator) StopCollecting() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.collecting {
		return
	}
	a.closeBurst()
	a.recomputeRates()
	a.recomputeFocus()
	a.classifyMood()
	a.collecting = false

	logging.Telemetry("session %s stopped: words=%d wpm=%.1f mood=%s",
		a.m.SessionID, a.m.WordsWritten, a.m.WordsPerMinute, a.m.Mood)
}

// RecordTyping handles one text-length observation from the focus layer.
// The delta against the previous observation determines whether characters
// were typed or deleted.
func (a *Aggregator) RecordTyping(currentLength int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.collecting {
		return
	}
	now := a.clk.Now()

	delta := currentLength - a.lastLength
	a.lastLength = currentLength

	switch {
	case delta < 0:
		a.m.TotalDeletions += -delta
		a.pushDeletion(now)
	case delta > 0:
		a.m.CharactersTyped += delta
		words := delta / charsPerWord
		a.m.WordsWritten += words
		a.burstWords += words
	}

	if !a.lastTypingAt.IsZero() {
		gap := now.Sub(a.lastTypingAt)
		if gap > pauseThreshold {
			a.recordPauseLocked(gap)
		} else {
			a.m.ActiveWritingTime += gap
			a.burstDuration += gap
		}
	}
	a.lastTypingAt = now

	a.recomputeRates()
	a.classifyMood()
}

// RecordPause handles an explicit pause of the given duration.
func (a *Aggregator) RecordPause(duration time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.collecting {
		return
	}
	a.recordPauseLocked(duration)
	a.classifyMood()
}

// RecordAppSwitch handles a switch to another application. A switch longer
// than the distraction threshold also counts as a distraction.
func (a *Aggregator) RecordAppSwitch(appName string, duration time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.collecting {
		return
	}
	a.m.AppSwitchCount++
	logging.TelemetryDebug("app switch to %s (%v away)", appName, duration)

	if duration > distractionThreshold {
		a.m.DistractionCount++
		a.recomputeFocus()
	}
	a.classifyMood()
}

// RecordDistraction increments the distraction counter directly.
func (a *Aggregator) RecordDistraction() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.collecting {
		return
	}
	a.m.DistractionCount++
	a.recomputeFocus()
	a.classifyMood()
}

// RecordRewrite increments the rewrite counter.
func (a *Aggregator) RecordRewrite() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.collecting {
		return
	}
	a.m.RewriteCount++
}

// Snapshot returns a read-only copy of the current metrics.
func (a *Aggregator) Snapshot() types.SessionMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.m
}

// Collecting reports whether a session is active.
func (a *Aggregator) Collecting() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.collecting
}

func (a *Aggregator) pushDeletion(now time.Time) {
	a.deletions = append(a.deletions, now)
	cutoff := now.Add(-deletionWindow)
	trimmed := a.deletions[:0]
	for _, t := range a.deletions {
		if t.After(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	a.deletions = trimmed
	if len(a.deletions) > deletionBurstLimit {
		a.m.FrustrationSignals++
		logging.TelemetryDebug("frustration signal: %d deletions in %v", len(a.deletions), deletionWindow)
	}
}

func (a *Aggregator) recordPauseLocked(duration time.Duration) {
	a.m.PauseCount++
	a.m.TotalPauseTime += duration
	if duration > a.m.LongestPause {
		a.m.LongestPause = duration
	}
	a.m.AveragePause = a.m.TotalPauseTime / time.Duration(a.m.PauseCount)

	a.closeBurst()
	a.recomputeFocus()
}

// closeBurst ends the current typing burst and folds its words-per-minute
// into the peak.
func (a *Aggregator) closeBurst() {
	if a.burstWords > 0 && a.burstDuration > 0 {
		wpm := float64(a.burstWords) / a.burstDuration.Minutes()
		if wpm > a.m.PeakWordsPerMinute {
			a.m.PeakWordsPerMinute = wpm
		}
	}
	a.burstWords = 0
	a.burstDuration = 0
}

func (a *Aggregator) recomputeRates() {
	if a.m.ActiveWritingTime > minActiveForRates {
		minutes := a.m.ActiveWritingTime.Minutes()
		a.m.WordsPerMinute = float64(a.m.WordsWritten) / minutes
		a.m.CharactersPerMinute = float64(a.m.CharactersTyped) / minutes
	}
	if a.m.CharactersTyped > 0 {
		a.m.DeletionRate = float64(a.m.TotalDeletions) / float64(a.m.CharactersTyped) * 100
	}
}

// recomputeFocus applies the focus formula. Order matters: distraction
// penalty, then pause-ratio penalty, then app-switch penalty, then clamp.
func (a *Aggregator) recomputeFocus() {
	score := 1.0

	distractionPenalty := float64(a.m.DistractionCount) * 0.15
	if distractionPenalty > 0.5 {
		distractionPenalty = 0.5
	}
	score -= distractionPenalty

	denom := a.m.ActiveWritingTime + a.m.TotalPauseTime
	if denom > 0 {
		pausePenalty := a.m.TotalPauseTime.Seconds() / denom.Seconds() * 0.3
		if pausePenalty > 0.3 {
			pausePenalty = 0.3
		}
		score -= pausePenalty
	}

	switchPenalty := float64(a.m.AppSwitchCount) * 0.02
	if switchPenalty > 0.2 {
		switchPenalty = 0.2
	}
	score -= switchPenalty

	if score < 0 {
		score = 0
	}
	a.m.FocusScore = score
}

// classifyMood runs the ordered mood decision chain. The ordering is a
// contract: flowing is checked before struggling, so a fast session with a
// high deletion rate still classifies as flowing.
func (a *Aggregator) classifyMood() {
	active := a.m.ActiveWritingTime
	switch {
	case a.m.WordsPerMinute > 15 && a.m.PauseCount < 3 &&
		a.m.DistractionCount == 0 && active > 300*time.Second:
		a.m.Mood = types.MoodFlowing
	case a.m.FrustrationSignals > 2 || a.m.DeletionRate > 50:
		a.m.Mood = types.MoodStruggling
	case a.m.DistractionCount > 3 || a.m.FocusScore < 0.5:
		a.m.Mood = types.MoodDistracted
	case active > 3600*time.Second && a.m.WordsPerMinute < 10:
		a.m.Mood = types.MoodFatigued
	default:
		a.m.Mood = types.MoodFocused
	}
}
