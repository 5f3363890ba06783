package llm_service

import (
	"context"
)

// LLMService sends a prompt pair to a text-generation endpoint and returns
// the parsed JSON-object result. Implementations own retry policy; one
// instance may be reused across calls for a worker's lifetime.
type LLMService interface {
	CallJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error)
}
