package llm

import (
	"context"
	"fmt"
)

// DefaultTemperature keeps output consistent across runs
const DefaultTemperature = 0.1

// Request is a single completion call.
type Request struct {
	System      string
	Prompt      string
	Tier        ModelTier
	Temperature float64 // zero uses DefaultTemperature
	MaxTokens   int     // zero leaves the provider default
	JSON        bool    // ask the provider for a JSON object
}

// Client is an abstraction over LLM providers
type Client interface {
	// Complete runs one completion with an optional system instruction
	Complete(ctx context.Context, req Request) (string, error)
	// GenerateContent generates text content using the specified model tier
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateJSON generates JSON content using the specified model tier
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GetModel returns the provider model name for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderOpenAI, ProviderGroq:
		return NewOpenAIClient(config, apiKey)
	case ProviderGemini, "":
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

func temperatureOrDefault(t float64) float64 {
	if t <= 0 {
		return DefaultTemperature
	}
	return t
}
