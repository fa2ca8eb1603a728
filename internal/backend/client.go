// Package backend implements the generative backend clients: an
// OpenAI-compatible chat-completions client and a Gemini client, both with
// blocking and streaming completion paths.
package backend

import (
	"inkwell/internal/types"
)

// Client defines the interface for generative backends.
// This is an alias to types.LLMClient so packages can accept a backend
// without importing this package.
type Client = types.LLMClient

const defaultSystemPrompt = "You are inkwell, a writing companion. Be brief and concrete. Ground every remark in the provided text; never invent content the user did not write."

// streamBufferSize is the channel capacity for streamed content chunks.
const streamBufferSize = 100
