package lane

import (
	"fmt"
	"strings"

	"inkwell/internal/types"
)

// maxSuggestions is the cap requested from the model per generation.
const maxSuggestions = 3

const suggestionSystemPrompt = `You are a writing assistant. Analyze the user's text and propose up to %d improvements.
Respond with a single JSON object of the form:
{"suggestions":[{"text":"improved text","explanation":"why","original_text":"what it replaces","improvements":["clarity","conciseness","tone","grammar","structure","word_choice"],"confidence":0.0}]}
Output only the JSON object, nothing else.`

// buildSuggestionPrompt renders the prompt pair for a suggestion trigger.
func buildSuggestionPrompt(gctx types.GenerationContext) (systemPrompt, userPrompt string) {
	systemPrompt = fmt.Sprintf(suggestionSystemPrompt, maxSuggestions)

	var sb strings.Builder
	if gctx.DocumentType != "" {
		fmt.Fprintf(&sb, "Document type: %s\n", gctx.DocumentType)
	}
	if gctx.Section != "" {
		fmt.Fprintf(&sb, "Section: %s\n", gctx.Section)
	}
	if gctx.Tone != "" {
		fmt.Fprintf(&sb, "Desired tone: %s\n", gctx.Tone)
	}
	fmt.Fprintf(&sb, "Trigger: %s\n\n", gctx.Reason)
	if gctx.SelectedText != "" {
		fmt.Fprintf(&sb, "Selected passage:\n%s\n\n", gctx.SelectedText)
	}
	fmt.Fprintf(&sb, "Text:\n%s", gctx.Text)
	return systemPrompt, sb.String()
}

const commentarySystemPrompt = `You are an ambient writing companion. Offer one short, encouraging, concrete observation about what the user is writing right now. Speak directly to the writer. Two or three sentences, no lists, no JSON.`

// buildCommentaryPrompt renders the prompt pair for a commentary trigger.
func buildCommentaryPrompt(text string, wctx *types.WritingContext, stuckLabel string, metrics *types.SessionMetrics) (systemPrompt, userPrompt string) {
	systemPrompt = commentarySystemPrompt

	var sb strings.Builder
	if wctx != nil && wctx.AppName != "" {
		fmt.Fprintf(&sb, "The user is writing in %s", wctx.AppName)
		if wctx.WindowTitle != "" {
			fmt.Fprintf(&sb, " (%s)", wctx.WindowTitle)
		}
		sb.WriteString(".\n")
	}
	if stuckLabel != "" {
		fmt.Fprintf(&sb, "Observation: the user seems to be in a %q state.\n", stuckLabel)
	}
	if metrics != nil {
		fmt.Fprintf(&sb, "Session so far: %d words, mood %s.\n", metrics.WordsWritten, metrics.Mood)
	}
	fmt.Fprintf(&sb, "\nCurrent text:\n%s", text)
	return systemPrompt, sb.String()
}

// buildReplyPrompt renders the prompt pair for a direct user message, using
// recent transcript entries as conversational context.
func buildReplyPrompt(message string, history []*types.CommentaryEntry) (systemPrompt, userPrompt string) {
	systemPrompt = `You are an ambient writing companion in an ongoing conversation with the writer. Reply briefly and helpfully to their message, using the conversation so far.`

	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, e := range history {
			speaker := "companion"
			if e.FromUser {
				speaker = "writer"
			}
			fmt.Fprintf(&sb, "%s: %s\n", speaker, e.Content)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "writer: %s", message)
	return systemPrompt, sb.String()
}
