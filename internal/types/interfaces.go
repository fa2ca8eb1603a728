package types

import (
	"context"
)

// LLMClient defines the interface for generative backends.
// CompleteWithStreaming returns a content channel that is closed when the
// stream ends and an error channel that receives at most one error.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteWithStreaming(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error)
}

// ContextProvider supplies the current writing context from the platform
// focus/accessibility layer. A nil context with nil error means no focused
// element.
type ContextProvider interface {
	CurrentWritingContext() (*WritingContext, error)
}

// ContextProviderFunc adapts a function to the ContextProvider interface.
type ContextProviderFunc func() (*WritingContext, error)

func (f ContextProviderFunc) CurrentWritingContext() (*WritingContext, error) {
	return f()
}

// EntryStore persists commentary entries. Writes are best-effort; callers
// treat failures as non-fatal.
type EntryStore interface {
	SaveEntry(entry *CommentaryEntry) error
	FetchRecent(sessionID string, limit int) ([]*CommentaryEntry, error)
}
