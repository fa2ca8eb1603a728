// Package coordinator sequences the companion's observe, analyze, generate,
// display cycle. It is the only component that touches both lanes and the
// telemetry aggregator: focus events and screen polls arrive here, get
// debounced and de-duplicated, then route to exactly one lane.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"inkwell/internal/lane"
	"inkwell/internal/logging"
	"inkwell/internal/telemetry"
	"inkwell/internal/types"
)

const eventBuffer = 64

// SessionStore is the slice of persistence the coordinator drives directly.
type SessionStore interface {
	StartSession(sessionID string, startedAt time.Time) error
	FinalizeSession(metrics types.SessionMetrics, endedAt time.Time) error
}

// Options carries the timing knobs, normally sourced from CompanionConfig.
type Options struct {
	DebounceNormal        time.Duration // focus-event debounce, default 1s
	DebounceCommentary    time.Duration // debounce when commentary is on, default 500ms
	ScreenPollInterval    time.Duration // default 5s
	MinCommentaryInterval time.Duration // floor between poll-driven commentary, default 15s
	AwayThreshold         time.Duration // app switches longer than this count as away, default 30s
}

func (o *Options) fill() {
	if o.DebounceNormal <= 0 {
		o.DebounceNormal = time.Second
	}
	if o.DebounceCommentary <= 0 {
		o.DebounceCommentary = 500 * time.Millisecond
	}
	if o.ScreenPollInterval <= 0 {
		o.ScreenPollInterval = 5 * time.Second
	}
	if o.MinCommentaryInterval <= 0 {
		o.MinCommentaryInterval = 15 * time.Second
	}
	if o.AwayThreshold <= 0 {
		o.AwayThreshold = 30 * time.Second
	}
}

// Coordinator owns the top-level state machine. External observers push
// events in via HandleContextChange/HandleTyping; Run drives the debounced
// analysis loop and the screen poller until its context is cancelled.
type Coordinator struct {
	mu sync.Mutex

	clk      clock.Clock
	provider types.ContextProvider
	suggest  *lane.SuggestionLane
	comment  *lane.CommentaryLane
	agg      *telemetry.Aggregator
	sessions SessionStore

	opts Options

	state        types.CoordinatorState
	lastAnalyzed string
	hasAnalyzed  bool

	// preserved writing context and away clock for the welcome-back rule
	lastCtx   *types.WritingContext
	away      bool
	awaySince time.Time

	lastScreenFP     string
	lastCommentaryAt time.Time
	hasCommentaried  bool

	events  chan *types.WritingContext
	started bool
}

// New wires a coordinator. Any of store may be nil; lanes and aggregator are
// required.
func New(provider types.ContextProvider, suggest *lane.SuggestionLane, comment *lane.CommentaryLane, agg *telemetry.Aggregator, sessions SessionStore, clk clock.Clock, opts Options) *Coordinator {
	if clk == nil {
		clk = clock.New()
	}
	opts.fill()
	return &Coordinator{
		clk:      clk,
		provider: provider,
		suggest:  suggest,
		comment:  comment,
		agg:      agg,
		sessions: sessions,
		opts:     opts,
		state:    types.StateIdle,
		events:   make(chan *types.WritingContext, eventBuffer),
	}
}

// StartSession begins telemetry collection and binds the lanes and the
// session row to a fresh session id. Returns the id.
func (c *Coordinator) StartSession() string {
	c.agg.StartCollecting()
	snap := c.agg.Snapshot()
	sessionID := snap.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	c.comment.StartSession(sessionID)
	if c.sessions != nil {
		if err := c.sessions.StartSession(sessionID, c.clk.Now()); err != nil {
			logging.CoordinatorError("failed to start session row: %v", err)
		}
	}

	c.mu.Lock()
	c.state = types.StateObserving
	c.started = true
	c.mu.Unlock()

	logging.Coordinator("session started: %s", sessionID)
	return sessionID
}

// StopSession cancels both lanes, finalizes telemetry, and persists the
// closing metrics snapshot.
func (c *Coordinator) StopSession() {
	c.suggest.Cancel()
	c.comment.Cancel()
	c.agg.StopCollecting()
	metrics := c.agg.Snapshot()
	if c.sessions != nil {
		if err := c.sessions.FinalizeSession(metrics, c.clk.Now()); err != nil {
			logging.CoordinatorError("failed to finalize session: %v", err)
		}
	}

	c.mu.Lock()
	c.state = types.StateIdle
	c.started = false
	c.mu.Unlock()

	logging.Coordinator("session stopped: %s", metrics.SessionID)
}

// HandleTyping feeds a text-length observation into telemetry.
func (c *Coordinator) HandleTyping(currentLength int) {
	c.agg.RecordTyping(currentLength)
}

// HandleContextChange accepts a focus-context event from the external
// observer. A nil context means focus left the writing context: the last
// context stays preserved and the away clock starts. The next non-nil event
// is the return; the time spent away feeds telemetry, and a return after
// more than the away threshold issues one welcome-back commentary trigger
// from the preserved context.
func (c *Coordinator) HandleContextChange(wctx *types.WritingContext) {
	now := c.clk.Now()

	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	if wctx == nil {
		if c.lastCtx != nil && !c.away {
			c.away = true
			c.awaySince = now
		}
		c.state = types.StateObserving
		c.mu.Unlock()
		return
	}

	prev := c.lastCtx
	wasAway, awaySince := c.away, c.awaySince
	c.away = false
	c.lastCtx = wctx
	c.state = types.StateObserving
	c.mu.Unlock()

	switch {
	case wasAway:
		awayFor := now.Sub(awaySince)
		c.agg.RecordAppSwitch(wctx.AppName, awayFor)
		if awayFor > c.opts.AwayThreshold && c.comment.Enabled() && prev != nil {
			logging.Coordinator("welcome back after %v away", awayFor)
			c.triggerCommentary(prev.AnalysisText(), prev, "welcome_back")
		}
	case prev != nil && prev.AppName != wctx.AppName:
		// Direct hop between text contexts. Focus was never lost, so no
		// time counts as away.
		c.agg.RecordAppSwitch(wctx.AppName, 0)
	}

	select {
	case c.events <- wctx:
	default:
		logging.CoordinatorError("event queue full, dropping context change")
	}
}

// Run supervises the debounce loop and the screen poller until ctx ends.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.eventLoop(ctx) })
	g.Go(func() error { return c.screenPollLoop(ctx) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("coordinator stopped: %w", err)
	}
	return nil
}

// eventLoop debounces focus events. The window is re-selected on every
// event based on the current commentary mode.
func (c *Coordinator) eventLoop(ctx context.Context) error {
	var (
		timer   *clock.Timer
		timerC  <-chan time.Time
		pending *types.WritingContext
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case wctx := <-c.events:
			pending = wctx
			stop()
			timer = c.clk.Timer(c.debounceWindow())
			timerC = timer.C
		case <-timerC:
			timer = nil
			timerC = nil
			c.analyze(pending)
		}
	}
}

func (c *Coordinator) debounceWindow() time.Duration {
	if c.comment.Enabled() {
		return c.opts.DebounceCommentary
	}
	return c.opts.DebounceNormal
}

// analyze runs one Observing -> Analyzing -> Generating -> Displaying pass
// for a debounced context.
func (c *Coordinator) analyze(wctx *types.WritingContext) {
	if wctx == nil {
		return
	}
	text := wctx.AnalysisText()

	c.mu.Lock()
	c.state = types.StateAnalyzing
	if c.hasAnalyzed && text == c.lastAnalyzed {
		c.state = types.StateObserving
		c.mu.Unlock()
		logging.CoordinatorDebug("skipping analysis: text unchanged")
		return
	}
	c.lastAnalyzed = text
	c.hasAnalyzed = true
	c.state = types.StateGenerating
	c.mu.Unlock()

	var accepted bool
	if c.comment.Enabled() {
		// Commentary takes exclusive precedence for this trigger.
		accepted = c.triggerCommentary(text, wctx, c.stuckLabel())
	} else {
		accepted = c.suggest.Trigger(types.GenerationContext{
			Text:         text,
			SelectedText: wctx.SelectedText,
			Reason:       c.triggerReason(),
		})
	}

	c.mu.Lock()
	if accepted {
		c.state = types.StateDisplaying
	} else {
		c.state = types.StateObserving
	}
	c.mu.Unlock()
}

// screenPollLoop polls visible content on a fixed interval and feeds the
// commentary lane when the fingerprint changed and the inter-commentary
// floor has elapsed.
func (c *Coordinator) screenPollLoop(ctx context.Context) error {
	ticker := c.clk.Ticker(c.opts.ScreenPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.pollScreen()
		}
	}
}

func (c *Coordinator) pollScreen() {
	if c.provider == nil || !c.comment.Enabled() {
		return
	}
	wctx, err := c.provider.CurrentWritingContext()
	if err != nil {
		logging.CoordinatorError("screen poll failed: %v", err)
		return
	}
	if wctx == nil {
		return
	}
	text := wctx.AnalysisText()
	fp := lane.Fingerprint(text)
	now := c.clk.Now()

	c.mu.Lock()
	if !c.started || fp == c.lastScreenFP {
		c.mu.Unlock()
		return
	}
	if c.hasCommentaried && now.Sub(c.lastCommentaryAt) < c.opts.MinCommentaryInterval {
		c.mu.Unlock()
		return
	}
	c.lastScreenFP = fp
	c.mu.Unlock()

	c.triggerCommentary(text, wctx, c.stuckLabel())
}

// triggerCommentary fires the commentary lane and records the trigger time
// on acceptance. Both the focus-driven and poll-driven paths go through
// here, so they share one single-flight gate and one interval floor.
func (c *Coordinator) triggerCommentary(text string, wctx *types.WritingContext, stuckLabel string) bool {
	if !c.comment.Trigger(text, wctx, stuckLabel) {
		return false
	}
	c.mu.Lock()
	c.lastCommentaryAt = c.clk.Now()
	c.hasCommentaried = true
	c.mu.Unlock()
	return true
}

// stuckLabel derives a coarse behavioral label from the current metrics.
func (c *Coordinator) stuckLabel() string {
	m := c.agg.Snapshot()
	switch {
	case m.FrustrationSignals > 0:
		return "editing_loop"
	case m.Mood == types.MoodStruggling:
		return "stuck"
	default:
		return ""
	}
}

func (c *Coordinator) triggerReason() types.TriggerReason {
	m := c.agg.Snapshot()
	switch {
	case m.FrustrationSignals > 0:
		return types.TriggerEditingLoop
	case m.Mood == types.MoodStruggling:
		return types.TriggerStuckDetected
	default:
		return types.TriggerProactive
	}
}

// State returns the coordinator state.
func (c *Coordinator) State() types.CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Surface is the published snapshot an external display layer renders from.
type Surface struct {
	State           types.CoordinatorState `json:"state"`
	Suggestions     []types.Suggestion     `json:"suggestions"`
	SuggestionState types.StreamState      `json:"suggestion_state"`
	Transcript      string                 `json:"transcript"`
	CommentaryState types.StreamState      `json:"commentary_state"`
	Metrics         types.SessionMetrics   `json:"metrics"`
}

// Publish assembles the observable surface.
func (c *Coordinator) Publish() Surface {
	return Surface{
		State:           c.State(),
		Suggestions:     c.suggest.Published(),
		SuggestionState: c.suggest.State(),
		Transcript:      c.comment.Transcript(),
		CommentaryState: c.comment.State(),
		Metrics:         c.agg.Snapshot(),
	}
}
