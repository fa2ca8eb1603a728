package lane

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"inkwell/internal/backend"
	"inkwell/internal/extract"
	"inkwell/internal/logging"
	"inkwell/internal/types"
)

// SuggestionOptions configures the suggestion lane gates.
type SuggestionOptions struct {
	Cooldown time.Duration // minimum gap between accepted triggers, default 5s
	MinChars int           // minimum analysis text length, default 20
}

// SuggestionLane drives streamed suggestion generation. At most one
// generation task is active; an accepted trigger cancels the previous one.
type SuggestionLane struct {
	mu     sync.Mutex
	clk    clock.Clock
	client backend.Client

	cooldown time.Duration
	minChars int

	lastTrigger  time.Time
	hasTriggered bool

	// gen guards against stale tasks publishing after they were superseded.
	gen  int
	task *task

	published []types.Suggestion
	state     types.StreamState

	acceptedCount int
	rejectedCount int
}

// NewSuggestionLane creates a suggestion lane.
func NewSuggestionLane(client backend.Client, clk clock.Clock, opts SuggestionOptions) *SuggestionLane {
	if clk == nil {
		clk = clock.New()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Second
	}
	if opts.MinChars <= 0 {
		opts.MinChars = 20
	}
	return &SuggestionLane{
		clk:      clk,
		client:   client,
		cooldown: opts.Cooldown,
		minChars: opts.MinChars,
		state:    types.StreamState{Phase: types.PhaseIdle},
	}
}

// Trigger requests a suggestion generation for the given context. Gate
// failures (short text, cooldown, no backend) are silent no-ops that leave
// previously published results in place. Returns whether the trigger was
// accepted.
func (l *SuggestionLane) Trigger(gctx types.GenerationContext) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client == nil {
		return false
	}
	if len(gctx.Text) < l.minChars {
		logging.SuggestDebug("trigger rejected: text too short (%d < %d)", len(gctx.Text), l.minChars)
		return false
	}
	now := l.clk.Now()
	if l.hasTriggered && now.Sub(l.lastTrigger) < l.cooldown {
		logging.SuggestDebug("trigger rejected: cooldown (%v since last)", now.Sub(l.lastTrigger))
		return false
	}

	l.lastTrigger = now
	l.hasTriggered = true
	l.cancelLocked()

	l.gen++
	t, ctx := newTask()
	l.task = t
	l.state = types.StreamState{Phase: types.PhaseStarting}

	logging.Suggest("trigger accepted: reason=%s len=%d", gctx.Reason, len(gctx.Text))
	go l.run(ctx, t, l.gen, gctx)
	return true
}

func (l *SuggestionLane) run(ctx context.Context, t *task, gen int, gctx types.GenerationContext) {
	defer close(t.done)

	systemPrompt, userPrompt := buildSuggestionPrompt(gctx)
	contentCh, errCh := l.client.CompleteWithStreaming(ctx, systemPrompt, userPrompt)

	var buf strings.Builder
	for chunk := range contentCh {
		buf.WriteString(chunk)
		if partial := extract.ExtractComplete(buf.String()); len(partial) > 0 {
			l.publishPartial(gen, partial)
		}
	}

	if err := <-errCh; err != nil {
		if errors.Is(err, context.Canceled) {
			return // superseded or cancelled; the new owner sets state
		}
		l.failStream(gen, err)
		return
	}

	final, err := extract.DecodeFinal(buf.String())
	if err != nil {
		l.failStream(gen, errors.Join(backend.ErrMalformed, err))
		return
	}
	l.publishFinal(gen, final)
}

func (l *SuggestionLane) publishPartial(gen int, sugs []types.Suggestion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	l.published = sugs
	l.state = types.StreamState{
		Phase: types.PhaseStreaming,
		Index: len(sugs),
		Total: maxSuggestions,
	}
}

func (l *SuggestionLane) publishFinal(gen int, sugs []types.Suggestion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	l.published = sugs
	l.state = types.StreamState{Phase: types.PhaseComplete}
	logging.Suggest("stream complete: %d suggestions", len(sugs))
}

// failStream moves the lane to Error. Already-published partial suggestions
// stay in place; only the raw buffer is discarded.
func (l *SuggestionLane) failStream(gen int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	category := backend.Categorize(err)
	l.state = types.StreamState{Phase: types.PhaseError, Message: string(category)}
	logging.SuggestError("stream failed (%s): %v", category, err)
}

// Cancel aborts any in-flight generation and returns the lane to Idle.
// Safe to call when the lane is already idle.
func (l *SuggestionLane) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelLocked()
	l.gen++
	l.state = types.StreamState{Phase: types.PhaseIdle}
}

func (l *SuggestionLane) cancelLocked() {
	if l.task != nil {
		l.task.cancel()
		l.task = nil
	}
}

// Accept removes the suggestion from the published list and returns its
// text for the caller to apply.
func (l *SuggestionLane) Accept(id string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.published {
		if s.ID == id {
			l.published = append(l.published[:i:i], l.published[i+1:]...)
			l.acceptedCount++
			return s.Text, true
		}
	}
	return "", false
}

// Reject removes the suggestion from the published list.
func (l *SuggestionLane) Reject(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.published {
		if s.ID == id {
			l.published = append(l.published[:i:i], l.published[i+1:]...)
			l.rejectedCount++
			return true
		}
	}
	return false
}

// Published returns a copy of the current suggestion list.
func (l *SuggestionLane) Published() []types.Suggestion {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Suggestion, len(l.published))
	copy(out, l.published)
	return out
}

// State returns the current stream state.
func (l *SuggestionLane) State() types.StreamState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Counts returns how many suggestions were accepted and rejected.
func (l *SuggestionLane) Counts() (accepted, rejected int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acceptedCount, l.rejectedCount
}

// wait blocks until the current task finishes. Test helper.
func (l *SuggestionLane) wait() {
	l.mu.Lock()
	t := l.task
	l.mu.Unlock()
	if t != nil {
		<-t.done
	}
}
