package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sseServer(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestOpenAIStreamingDeliversChunks(t *testing.T) {
	srv := sseServer(t, []string{"hel", "lo ", "world"})
	defer srv.Close()

	c := NewOpenAIClientWithConfig(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	contentCh, errCh := c.CompleteWithStreaming(context.Background(), "", "hi")

	var got strings.Builder
	for chunk := range contentCh {
		got.WriteString(chunk)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if got.String() != "hello world" {
		t.Fatalf("got %q, want %q", got.String(), "hello world")
	}
}

func TestOpenAIStreamingWithoutKey(t *testing.T) {
	c := NewOpenAIClient("")
	contentCh, errCh := c.CompleteWithStreaming(context.Background(), "", "hi")

	for range contentCh {
	}
	if err := <-errCh; !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err=%v, want ErrNotConfigured", err)
	}
}

func TestOpenAIStreamingContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-release // hold the stream open
	}))
	defer srv.Close()
	defer close(release)

	c := NewOpenAIClientWithConfig(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	contentCh, errCh := c.CompleteWithStreaming(ctx, "", "hi")

	if first := <-contentCh; first != "first" {
		t.Fatalf("first chunk=%q", first)
	}
	cancel()

	for range contentCh {
	}
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestOpenAICompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClientWithConfig(OpenAIConfig{
		APIKey:  "bad",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	_, err := c.Complete(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if Categorize(err) != CategoryAuth {
		t.Fatalf("category=%s, want auth", Categorize(err))
	}
}

func TestOpenAICompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  done  "}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClientWithConfig(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})

	got, err := c.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "done" {
		t.Fatalf("got %q, want %q", got, "done")
	}
}
