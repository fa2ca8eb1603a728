package lane

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"inkwell/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedClient is a backend fake that streams a fixed chunk sequence and
// then either succeeds or fails with a scripted error. A non-nil hold
// channel keeps the stream open after the chunks until the test releases it
// or the context is cancelled.
type scriptedClient struct {
	mu     sync.Mutex
	calls  int
	chunks []string
	err    error
	hold   chan struct{}
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.mu.Lock()
	c.calls++
	chunks, err := c.chunks, c.err
	c.mu.Unlock()
	if err != nil {
		return "", err
	}
	var out string
	for _, ch := range chunks {
		out += ch
	}
	return out, nil
}

func (c *scriptedClient) CompleteWithStreaming(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	c.mu.Lock()
	c.calls++
	chunks, scriptErr, hold := c.chunks, c.err, c.hold
	c.mu.Unlock()

	contentCh := make(chan string, len(chunks)+1)
	errCh := make(chan error, 1)
	go func() {
		defer close(contentCh)
		for _, ch := range chunks {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case contentCh <- ch:
			}
		}
		if hold != nil {
			select {
			case <-hold:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if scriptErr != nil {
			errCh <- scriptErr
			return
		}
		close(errCh)
	}()
	return contentCh, errCh
}

// memStore is an in-memory EntryStore.
type memStore struct {
	mu      sync.Mutex
	entries []*types.CommentaryEntry
	saveErr error
}

func (s *memStore) SaveEntry(entry *types.CommentaryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memStore) FetchRecent(sessionID string, limit int) ([]*types.CommentaryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if len(s.entries) > limit {
		start = len(s.entries) - limit
	}
	out := make([]*types.CommentaryEntry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out, nil
}

func (s *memStore) saved() []*types.CommentaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.CommentaryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
