package driven

import "context"

// LLMService provides language model completion for criterion evaluation.
// This is an optional service - when nil, evaluation degrades to a fixed
// UNKNOWN verdict rather than failing.
//
// Implementations must fail fast and cleanly (the HTTP client carries a
// timeout) rather than hang; the caller treats every provider failure as
// a per-item degraded result.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Chat sends a system/user conversation and returns the assistant
	// reply text.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSONResponse requests a JSON-only reply from providers that
	// support constrained output. Providers without native support
	// rely on prompt instructions instead.
	JSONResponse bool
}
