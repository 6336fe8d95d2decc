package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	oaioption "github.com/openai/openai-go/v3/option"
)

// jsonOnlyInstruction is prepended when a JSON answer is requested
const jsonOnlyInstruction = "You must respond with valid JSON only. Do not include any text outside the JSON object."

// OpenAIClient implements Client for OpenAI and OpenAI-compatible providers (Groq)
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates a chat-completions client. config.BaseURL selects a
// compatible provider; extra options are appended (tests use them for retries).
func NewOpenAIClient(config *Config, apiKey string, opts ...oaioption.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultOpenAIConfig()
	}

	options := []oaioption.RequestOption{oaioption.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		options = append(options, oaioption.WithBaseURL(config.BaseURL))
	}
	options = append(options, opts...)

	client := openai.NewClient(options...)
	return &OpenAIClient{client: &client, config: config}, nil
}

// Complete runs one chat completion
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.JSON {
		messages = append(messages, openai.SystemMessage(jsonOnlyInstruction))
	}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(modelName),
		Messages:    messages,
		Temperature: openai.Float(temperatureOrDefault(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	text := resp.Choices[0].Message.Content
	if req.JSON {
		return CleanJSONBlock(text), nil
	}
	return text, nil
}

// GenerateContent generates text content using the specified model tier
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.Complete(ctx, Request{Prompt: prompt, Tier: tier})
}

// GenerateJSON generates JSON content using the specified model tier
func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.Complete(ctx, Request{Prompt: prompt, Tier: tier, JSON: true})
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no resources
func (c *OpenAIClient) Close() error {
	return nil
}
