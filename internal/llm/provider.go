package llm

import "context"

// Provider is one LLM backend's chat-completion capability. Each
// concrete provider (internal/llm/providers) translates ChatRequest
// into its own wire format and back.
type Provider interface {
	ID() string
	Chat(ctx context.Context, apiKey string, req ChatRequest) (ChatResponse, error)
}

// RateLimitError signals a provider rejected a request for exceeding
// its rate/quota limit on the given key; the router puts that key in
// cooldown and retries with another.
type RateLimitError struct {
	ProviderID string
}

func (e *RateLimitError) Error() string { return e.ProviderID + ": rate limited" }

// InvalidRequestError signals a non-retryable client error (bad
// request, unsupported model); the router treats this as fatal to the
// current provider/model pair and moves to the next fallback.
type InvalidRequestError struct {
	ProviderID string
	Reason     string
}

func (e *InvalidRequestError) Error() string { return e.ProviderID + ": invalid request: " + e.Reason }

// modelPrefixes maps common model-name prefixes to a
// provider ID, used when a config entry names a model without also
// naming its provider explicitly.
var modelPrefixes = map[string]string{
	"gemini-": "gemini",
	"gpt-":    "openai",
	"o1-":     "openai",
	"claude-": "anthropic",
}

// DetectProvider infers a provider ID from a model name's prefix.
// Returns ("", false) if no known prefix matches.
func DetectProvider(model string) (string, bool) {
	for prefix, id := range modelPrefixes {
		if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
			return id, true
		}
	}
	return "", false
}
