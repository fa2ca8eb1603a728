// Package lane implements the two single-flight streaming pipelines: the
// suggestion lane and the commentary/dialogue lane. Each lane owns at most
// one in-flight generation task; a newly accepted trigger cancels the
// previous task before starting its own.
package lane

import (
	"context"
	"strings"
)

// fingerprintLen is how much of the text participates in the dedupe
// fingerprint.
const fingerprintLen = 200

// Fingerprint returns the normalized prefix used to detect "same input,
// don't re-trigger".
func Fingerprint(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) > fingerprintLen {
		runes = runes[:fingerprintLen]
	}
	return string(runes)
}

// task is one cancelable in-flight generation.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// newTask wraps a fresh context for one lane invocation.
func newTask() (*task, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	return &task{cancel: cancel, done: make(chan struct{})}, ctx
}
