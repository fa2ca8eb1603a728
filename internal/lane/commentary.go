package lane

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"inkwell/internal/backend"
	"inkwell/internal/logging"
	"inkwell/internal/types"
)

// historyLimit is how many persisted entries feed a user-message reply.
const historyLimit = 8

// CommentaryOptions configures the commentary lane.
type CommentaryOptions struct {
	Enabled  bool
	Cooldown time.Duration // mode-dependent, default 5s
	MinChars int           // minimum trigger text length, default 30

	// MetricsFn supplies the telemetry snapshot attached to persisted
	// entries. May be nil.
	MetricsFn func() types.SessionMetrics

	// ProfileFn is invoked after each completed commentary with the metrics
	// snapshot, for style-profile aggregation. May be nil.
	ProfileFn func(types.SessionMetrics)
}

// CommentaryLane drives streamed ambient commentary with append-only
// transcript semantics. Independent single-flight lane from the suggestion
// lane; the two may run concurrently with each other but never with
// themselves.
type CommentaryLane struct {
	mu     sync.Mutex
	clk    clock.Clock
	client backend.Client
	store  types.EntryStore

	enabled  bool
	cooldown time.Duration
	minChars int

	metricsFn func() types.SessionMetrics
	profileFn func(types.SessionMetrics)

	sessionID string

	lastTrigger     time.Time
	hasTriggered    bool
	lastFingerprint string

	gen  int
	task *task

	// transcript is the persisted portion; streamBuf is the in-flight
	// addition shown after it.
	transcript string
	streamBuf  string
	state      types.StreamState
}

// NewCommentaryLane creates a commentary lane.
func NewCommentaryLane(client backend.Client, store types.EntryStore, clk clock.Clock, opts CommentaryOptions) *CommentaryLane {
	if clk == nil {
		clk = clock.New()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Second
	}
	if opts.MinChars <= 0 {
		opts.MinChars = 30
	}
	return &CommentaryLane{
		clk:       clk,
		client:    client,
		store:     store,
		enabled:   opts.Enabled,
		cooldown:  opts.Cooldown,
		minChars:  opts.MinChars,
		metricsFn: opts.MetricsFn,
		profileFn: opts.ProfileFn,
		state:     types.StreamState{Phase: types.PhaseIdle},
	}
}

// StartSession binds the lane to a session for entry persistence.
func (l *CommentaryLane) StartSession(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionID = sessionID
}

// SetEnabled toggles the lane (config hot-reload path).
func (l *CommentaryLane) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Enabled reports whether the lane is on.
func (l *CommentaryLane) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// SetCooldown adjusts the cooldown (mode change via config hot-reload).
func (l *CommentaryLane) SetCooldown(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d > 0 {
		l.cooldown = d
	}
}

// Trigger requests commentary on the given text. Rejected when the lane is
// disabled, no backend is configured, the text is too short, or the trigger
// repeats the last fingerprint within the cooldown window. Returns whether
// the trigger was accepted.
func (l *CommentaryLane) Trigger(text string, wctx *types.WritingContext, stuckLabel string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || l.client == nil {
		return false
	}
	if len(text) < l.minChars {
		logging.CommentaryDebug("trigger rejected: text too short (%d < %d)", len(text), l.minChars)
		return false
	}
	fp := Fingerprint(text)
	now := l.clk.Now()
	if l.hasTriggered && now.Sub(l.lastTrigger) < l.cooldown && fp == l.lastFingerprint {
		logging.CommentaryDebug("trigger rejected: cooldown with same fingerprint")
		return false
	}

	l.startLocked(now, fp)
	systemPrompt, userPrompt := buildCommentaryPrompt(text, wctx, stuckLabel, l.snapshotPtr())

	t, ctx := l.spawnLocked()
	meta := entryMeta{wctx: wctx, stuckLabel: stuckLabel}
	logging.Commentary("trigger accepted: len=%d stuck=%q", len(text), stuckLabel)
	go l.run(ctx, t, l.gen, systemPrompt, userPrompt, meta)
	return true
}

// SendUserMessage bypasses the cooldown entirely: it persists the
// user-authored entry immediately, then triggers a reply using the recent
// transcript as conversational context.
func (l *CommentaryLane) SendUserMessage(message string) error {
	l.mu.Lock()

	if !l.enabled || l.client == nil {
		l.mu.Unlock()
		return backend.ErrNotConfigured
	}
	message = strings.TrimSpace(message)
	if message == "" {
		l.mu.Unlock()
		return fmt.Errorf("empty message")
	}

	sessionID := l.sessionID
	userEntry := &types.CommentaryEntry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Content:   message,
		FromUser:  true,
		CreatedAt: l.clk.Now(),
	}
	l.appendTranscriptLocked(message)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.SaveEntry(userEntry); err != nil {
			logging.CommentaryError("failed to persist user entry: %v", err)
		}
	}

	var history []*types.CommentaryEntry
	if l.store != nil {
		var err error
		history, err = l.store.FetchRecent(sessionID, historyLimit)
		if err != nil {
			logging.CommentaryError("failed to fetch history: %v", err)
		}
	}
	systemPrompt, userPrompt := buildReplyPrompt(message, history)

	l.mu.Lock()
	l.startLocked(l.clk.Now(), Fingerprint(message))
	t, ctx := l.spawnLocked()
	gen := l.gen
	l.mu.Unlock()

	logging.Commentary("user message accepted: len=%d", len(message))
	go l.run(ctx, t, gen, systemPrompt, userPrompt, entryMeta{})
	return nil
}

// startLocked records trigger acceptance and cancels any in-flight task.
func (l *CommentaryLane) startLocked(now time.Time, fp string) {
	l.lastTrigger = now
	l.hasTriggered = true
	l.lastFingerprint = fp
	if l.task != nil {
		l.task.cancel()
		l.task = nil
	}
	l.streamBuf = ""
}

func (l *CommentaryLane) spawnLocked() (*task, context.Context) {
	l.gen++
	t, ctx := newTask()
	l.task = t
	l.state = types.StreamState{Phase: types.PhaseStarting}
	return t, ctx
}

type entryMeta struct {
	wctx       *types.WritingContext
	stuckLabel string
}

func (l *CommentaryLane) run(ctx context.Context, t *task, gen int, systemPrompt, userPrompt string, meta entryMeta) {
	defer close(t.done)

	contentCh, errCh := l.client.CompleteWithStreaming(ctx, systemPrompt, userPrompt)

	for chunk := range contentCh {
		l.appendChunk(gen, chunk)
	}

	if err := <-errCh; err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		l.failStream(gen, err)
		return
	}
	l.complete(gen, meta)
}

func (l *CommentaryLane) appendChunk(gen int, chunk string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	l.streamBuf += chunk
	l.state = types.StreamState{Phase: types.PhaseStreaming}
}

// failStream transitions to Error and discards the unpersisted buffer.
// Terminal until the next trigger.
func (l *CommentaryLane) failStream(gen int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	category := backend.Categorize(err)
	l.streamBuf = ""
	l.state = types.StreamState{Phase: types.PhaseError, Message: string(category)}
	logging.CommentaryError("stream failed (%s): %v", category, err)
}

// complete folds the streamed text into the transcript, persists the entry,
// and updates the style profile.
func (l *CommentaryLane) complete(gen int, meta entryMeta) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	content := strings.TrimSpace(l.streamBuf)
	l.streamBuf = ""
	if content != "" {
		l.appendTranscriptLocked(content)
	}
	l.state = types.StreamState{Phase: types.PhaseComplete}

	var snapshot *types.SessionMetrics
	if l.metricsFn != nil {
		m := l.metricsFn()
		snapshot = &m
	}
	entry := &types.CommentaryEntry{
		ID:              uuid.NewString(),
		SessionID:       l.sessionID,
		Content:         content,
		StuckLabel:      meta.stuckLabel,
		MetricsSnapshot: snapshot,
		CreatedAt:       l.clk.Now(),
	}
	if meta.wctx != nil {
		entry.AppName = meta.wctx.AppName
		entry.WindowTitle = meta.wctx.WindowTitle
	}
	store := l.store
	profileFn := l.profileFn
	l.mu.Unlock()

	if content == "" {
		return
	}

	// Persistence is best-effort: failures are logged, never surfaced.
	if store != nil {
		if err := store.SaveEntry(entry); err != nil {
			logging.CommentaryError("failed to persist entry %s: %v", entry.ID, err)
		}
	}
	if profileFn != nil && snapshot != nil {
		profileFn(*snapshot)
	}
	logging.Commentary("stream complete: %d chars", len(content))
}

// appendTranscriptLocked appends content after the existing transcript,
// separated by a blank line. Continuity across triggers is a contract.
func (l *CommentaryLane) appendTranscriptLocked(content string) {
	if l.transcript == "" {
		l.transcript = content
		return
	}
	l.transcript = l.transcript + "\n\n" + content
}

// Cancel aborts any in-flight generation, discards unpersisted buffer
// content, and returns the lane to Idle. Safe on an idle lane.
func (l *CommentaryLane) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.task != nil {
		l.task.cancel()
		l.task = nil
	}
	l.gen++
	l.streamBuf = ""
	l.state = types.StreamState{Phase: types.PhaseIdle}
}

// Transcript returns the persisted transcript plus any in-flight streamed
// text.
func (l *CommentaryLane) Transcript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.streamBuf == "" {
		return l.transcript
	}
	if l.transcript == "" {
		return l.streamBuf
	}
	return l.transcript + "\n\n" + l.streamBuf
}

// State returns the current stream state.
func (l *CommentaryLane) State() types.StreamState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *CommentaryLane) snapshotPtr() *types.SessionMetrics {
	if l.metricsFn == nil {
		return nil
	}
	m := l.metricsFn()
	return &m
}

// wait blocks until the current task finishes. Test helper.
func (l *CommentaryLane) wait() {
	l.mu.Lock()
	t := l.task
	l.mu.Unlock()
	if t != nil {
		<-t.done
	}
}
