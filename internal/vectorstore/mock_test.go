package vectorstore

import (
	"context"

	"github.com/jonathan/creator-persona/internal/llm"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	CompleteFunc func(ctx context.Context, req llm.Request) (string, error)
}

func (m *MockLLMClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return m.Complete(ctx, llm.Request{Prompt: prompt, Tier: tier})
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return m.Complete(ctx, llm.Request{Prompt: prompt, Tier: tier, JSON: true})
}

func (m *MockLLMClient) GetModel(llm.ModelTier) string {
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	return nil
}
