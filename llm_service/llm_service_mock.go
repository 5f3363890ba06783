package llm_service

import "context"

type MockLLMService struct {
	CallJSONFunc func(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error)
}

func (m *MockLLMService) CallJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
	return m.CallJSONFunc(ctx, systemPrompt, userPrompt)
}
