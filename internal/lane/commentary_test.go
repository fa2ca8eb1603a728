package lane

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/backend"
	"inkwell/internal/types"
)

const commentaryText = "Working through the second draft of the essay introduction."

func newTestCommentaryLane(client backend.Client, store types.EntryStore, opts CommentaryOptions) (*CommentaryLane, *clock.Mock) {
	mock := clock.NewMock()
	opts.Enabled = true
	l := NewCommentaryLane(client, store, mock, opts)
	l.StartSession("session-1")
	return l, mock
}

func TestCommentaryStreamCompletesAndPersists(t *testing.T) {
	client := &scriptedClient{chunks: []string{"You've been ", "circling this paragraph."}}
	store := &memStore{}

	var profiled []types.SessionMetrics
	l, _ := newTestCommentaryLane(client, store, CommentaryOptions{
		MetricsFn: func() types.SessionMetrics {
			return types.SessionMetrics{WordsWritten: 42, Mood: types.MoodStruggling}
		},
		ProfileFn: func(m types.SessionMetrics) { profiled = append(profiled, m) },
	})

	wctx := &types.WritingContext{AppName: "Pages", WindowTitle: "Essay.pages"}
	require.True(t, l.Trigger(commentaryText, wctx, "editing_loop"))
	l.wait()

	assert.Equal(t, types.PhaseComplete, l.State().Phase)
	assert.Equal(t, "You've been circling this paragraph.", l.Transcript())

	saved := store.saved()
	require.Len(t, saved, 1)
	entry := saved[0]
	assert.Equal(t, "session-1", entry.SessionID)
	assert.Equal(t, "You've been circling this paragraph.", entry.Content)
	assert.False(t, entry.FromUser)
	assert.Equal(t, "Pages", entry.AppName)
	assert.Equal(t, "editing_loop", entry.StuckLabel)
	require.NotNil(t, entry.MetricsSnapshot)
	assert.Equal(t, 42, entry.MetricsSnapshot.WordsWritten)

	require.Len(t, profiled, 1)
	assert.Equal(t, types.MoodStruggling, profiled[0].Mood)
}

func TestCommentaryGates(t *testing.T) {
	client := &scriptedClient{chunks: []string{"hello"}}
	l, _ := newTestCommentaryLane(client, &memStore{}, CommentaryOptions{})

	l.SetEnabled(false)
	assert.False(t, l.Trigger(commentaryText, nil, ""))
	l.SetEnabled(true)

	assert.False(t, l.Trigger("too short to comment on", nil, ""))
	assert.Equal(t, 0, client.callCount())

	noClient := NewCommentaryLane(nil, &memStore{}, clock.NewMock(), CommentaryOptions{Enabled: true})
	assert.False(t, noClient.Trigger(commentaryText, nil, ""))
}

func TestCommentaryCooldownSameFingerprintRejected(t *testing.T) {
	client := &scriptedClient{chunks: []string{"noted"}}
	l, mock := newTestCommentaryLane(client, &memStore{}, CommentaryOptions{})

	require.True(t, l.Trigger(commentaryText, nil, ""))
	l.wait()

	mock.Add(1 * time.Second)
	assert.False(t, l.Trigger(commentaryText, nil, ""))
	assert.Equal(t, 1, client.callCount())

	mock.Add(10 * time.Second)
	require.True(t, l.Trigger(commentaryText, nil, ""))
	l.wait()
	assert.Equal(t, 2, client.callCount())
}

func TestCommentaryDifferentTextWithinCooldownAccepted(t *testing.T) {
	client := &scriptedClient{chunks: []string{"noted"}}
	l, mock := newTestCommentaryLane(client, &memStore{}, CommentaryOptions{})

	require.True(t, l.Trigger(commentaryText, nil, ""))
	l.wait()

	mock.Add(1 * time.Second)
	require.True(t, l.Trigger(commentaryText+" Revised with a new closing line.", nil, ""))
	l.wait()
	assert.Equal(t, 2, client.callCount())
}

func TestCommentaryTranscriptAppendsAcrossTriggers(t *testing.T) {
	client := &scriptedClient{chunks: []string{"First remark."}}
	l, mock := newTestCommentaryLane(client, &memStore{}, CommentaryOptions{})

	require.True(t, l.Trigger(commentaryText, nil, ""))
	l.wait()

	client.mu.Lock()
	client.chunks = []string{"Second remark."}
	client.mu.Unlock()

	mock.Add(10 * time.Second)
	require.True(t, l.Trigger(commentaryText+" Plus a fresh paragraph about pacing.", nil, ""))
	l.wait()

	assert.Equal(t, "First remark.\n\nSecond remark.", l.Transcript())
}

func TestCommentaryTranscriptIncludesInFlightStream(t *testing.T) {
	hold := make(chan struct{})
	client := &scriptedClient{chunks: []string{"Streaming now"}, hold: hold}
	l, _ := newTestCommentaryLane(client, &memStore{}, CommentaryOptions{})

	require.True(t, l.Trigger(commentaryText, nil, ""))
	require.Eventually(t, func() bool {
		return strings.Contains(l.Transcript(), "Streaming now")
	}, time.Second, 5*time.Millisecond)

	close(hold)
	l.wait()
	assert.Equal(t, "Streaming now", l.Transcript())
}

func TestCommentaryStreamErrorDiscardsBuffer(t *testing.T) {
	client := &scriptedClient{
		chunks: []string{"half a thought"},
		err:    &backend.StatusError{Status: 401, Body: "bad key"},
	}
	l, _ := newTestCommentaryLane(client, &memStore{}, CommentaryOptions{})

	require.True(t, l.Trigger(commentaryText, nil, ""))
	l.wait()

	state := l.State()
	assert.Equal(t, types.PhaseError, state.Phase)
	assert.Equal(t, string(backend.CategoryAuth), state.Message)
	assert.Empty(t, l.Transcript())
}

func TestCommentaryCancelDiscardsBuffer(t *testing.T) {
	hold := make(chan struct{})
	client := &scriptedClient{chunks: []string{"unfinished"}, hold: hold}
	l, _ := newTestCommentaryLane(client, &memStore{}, CommentaryOptions{})

	require.True(t, l.Trigger(commentaryText, nil, ""))
	require.Eventually(t, func() bool {
		return strings.Contains(l.Transcript(), "unfinished")
	}, time.Second, 5*time.Millisecond)

	l.mu.Lock()
	running := l.task
	l.mu.Unlock()

	l.Cancel()
	l.Cancel()
	<-running.done
	close(hold)

	assert.Equal(t, types.PhaseIdle, l.State().Phase)
	assert.Empty(t, l.Transcript())
}

func TestCommentaryUserMessageBypassesCooldown(t *testing.T) {
	client := &scriptedClient{chunks: []string{"Happy to help."}}
	store := &memStore{}
	l, _ := newTestCommentaryLane(client, store, CommentaryOptions{})

	require.True(t, l.Trigger(commentaryText, nil, ""))
	l.wait()

	// Same instant, no cooldown wait: user messages always go through.
	require.NoError(t, l.SendUserMessage("does the intro land?"))
	l.wait()

	saved := store.saved()
	require.Len(t, saved, 3)
	assert.False(t, saved[0].FromUser)
	assert.True(t, saved[1].FromUser)
	assert.Equal(t, "does the intro land?", saved[1].Content)
	assert.False(t, saved[2].FromUser)

	transcript := l.Transcript()
	assert.Contains(t, transcript, "does the intro land?")
	assert.True(t, strings.HasSuffix(transcript, "Happy to help."))
}

func TestCommentaryUserMessageValidation(t *testing.T) {
	l, _ := newTestCommentaryLane(&scriptedClient{}, &memStore{}, CommentaryOptions{})
	assert.Error(t, l.SendUserMessage("   "))

	l.SetEnabled(false)
	assert.ErrorIs(t, l.SendUserMessage("hello"), backend.ErrNotConfigured)
}
