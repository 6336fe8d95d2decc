package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/creator-persona/internal/llm"
	"github.com/jonathan/creator-persona/internal/prompts"
)

// Answerer turns retrieved passages into an answer. Without an LLM client it
// returns the passages themselves.
type Answerer struct {
	Client llm.Client
	Tier   llm.ModelTier
	// MaxTokens bounds the answer length; zero leaves the provider default.
	MaxTokens int
}

// Answer responds to question from passages. No passages means no answer.
func (a *Answerer) Answer(ctx context.Context, question string, passages []string) (string, error) {
	if len(passages) == 0 {
		return "", nil
	}

	contextText := formatPassages(passages)
	if a == nil || a.Client == nil {
		return contextText, nil
	}

	prompt, err := prompts.Render("rag.json", "answer-question", map[string]string{
		"Context":  contextText,
		"Question": question,
	})
	if err != nil {
		return "", err
	}

	tier := a.Tier
	if tier == "" {
		tier = llm.TierStandard
	}
	answer, err := a.Client.Complete(ctx, llm.Request{Prompt: prompt, Tier: tier, MaxTokens: a.MaxTokens})
	if err != nil {
		return "", fmt.Errorf("failed to answer from context: %w", err)
	}
	return answer, nil
}

func formatPassages(passages []string) string {
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, strings.TrimSpace(p))
	}
	return sb.String()
}
