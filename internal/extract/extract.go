// Package extract decodes structured suggestions from model output.
//
// Model responses arrive as free text with JSON embedded in it, and during
// streaming the JSON is usually incomplete. ExtractComplete pulls out every
// syntactically complete suggestion object found so far; DecodeFinal is the
// authoritative whole-buffer decode run once the stream has ended.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/types"
)

// spanResult tags the outcome of decoding one balanced brace span.
type spanResult int

const (
	spanOk         spanResult = iota // decoded a valid suggestion
	spanSkip                         // balanced but not a suggestion object
	spanIncomplete                   // braces never balanced; buffer still growing
)

// ExtractComplete scans a growing buffer and returns the suggestions whose
// JSON objects are already syntactically complete. It is a pure function of
// the buffer: the caller re-runs it on the whole accumulated buffer after
// every chunk, and identical buffers yield identical suggestion content
// (IDs are assigned fresh at emission).
//
// The scan stops entirely at the first unbalanced opening brace. A response
// wrapped in an outer object therefore yields nothing until the outer object
// closes; once it does, the scan descends past the non-suggestion wrapper
// and picks up the inner objects.
func ExtractComplete(buffer string) []types.Suggestion {
	var results []types.Suggestion

	i := 0
	for i < len(buffer) {
		rel := strings.IndexByte(buffer[i:], '{')
		if rel < 0 {
			break
		}
		start := i + rel

		end, balanced := matchBrace(buffer, start)
		if !balanced {
			// Incomplete span: the buffer ends mid-object. Stop scanning.
			break
		}

		sug, res := decodeSpan(buffer[start : end+1])
		if res == spanOk {
			results = append(results, sug)
			i = end + 1
		} else {
			// Not a suggestion (e.g. the outer wrapper). Step inside the
			// span so nested objects are still found.
			i = start + 1
		}
	}

	return results
}

// matchBrace walks forward from the opening brace at start, counting nesting
// depth, and returns the index of the matching closing brace.
func matchBrace(s string, start int) (end int, balanced bool) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// rawSuggestion is the wire shape of one suggestion object.
type rawSuggestion struct {
	Text         string   `json:"text"`
	Explanation  string   `json:"explanation"`
	OriginalText string   `json:"original_text"`
	Improvements []string `json:"improvements"`
	Confidence   *float64 `json:"confidence"`
}

// decodeSpan attempts to decode one balanced span as a suggestion.
// Unparsable spans and spans missing the required fields are skipped.
func decodeSpan(span string) (types.Suggestion, spanResult) {
	var raw rawSuggestion
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return types.Suggestion{}, spanSkip
	}
	if raw.Text == "" || raw.Explanation == "" {
		return types.Suggestion{}, spanSkip
	}
	return fromRaw(raw), spanOk
}

func fromRaw(raw rawSuggestion) types.Suggestion {
	sug := types.Suggestion{
		ID:           uuid.NewString(),
		OriginalText: raw.OriginalText,
		Text:         raw.Text,
		Explanation:  raw.Explanation,
		Confidence:   0.5,
		CreatedAt:    time.Now(),
	}
	for _, t := range raw.Improvements {
		if tag, ok := types.ParseImprovementTag(t); ok {
			sug.Improvements = append(sug.Improvements, tag)
		}
	}
	if raw.Confidence != nil {
		c := *raw.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		sug.Confidence = c
	}
	return sug
}

// finalEnvelope is the documented full-response shape.
type finalEnvelope struct {
	Suggestions []rawSuggestion `json:"suggestions"`
}

// DecodeFinal performs the authoritative decode of the complete response
// buffer. Unlike ExtractComplete it treats a malformed document as a hard
// error. Items missing required fields are dropped, not fatal.
func DecodeFinal(buffer string) ([]types.Suggestion, error) {
	doc := extractDocument(buffer)
	if doc == "" {
		return nil, fmt.Errorf("no JSON document in response")
	}

	var env finalEnvelope
	if err := json.Unmarshal([]byte(doc), &env); err != nil {
		// The model may emit a bare array instead of the envelope.
		var items []rawSuggestion
		if err2 := json.Unmarshal([]byte(doc), &items); err2 != nil {
			return nil, fmt.Errorf("malformed response: %w", err)
		}
		env.Suggestions = items
	}

	var results []types.Suggestion
	for _, raw := range env.Suggestions {
		if raw.Text == "" || raw.Explanation == "" {
			continue
		}
		results = append(results, fromRaw(raw))
	}
	return results, nil
}

// extractDocument finds the JSON document in a response that may carry
// markdown fences or prose around it.
func extractDocument(response string) string {
	if start := strings.IndexByte(response, '{'); start >= 0 {
		if end, ok := matchBrace(response, start); ok {
			return response[start : end+1]
		}
	}
	// Bare array fallback.
	if start := strings.IndexByte(response, '['); start >= 0 {
		if end := strings.LastIndexByte(response, ']'); end > start {
			return response[start : end+1]
		}
	}
	return ""
}
