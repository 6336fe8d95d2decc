// Package persona rewrites a merged ContentCreatorInfo into a first-person
// persona narrative in the style of an example persona.
package persona

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/llm"
	"github.com/jonathan/creator-persona/internal/prompts"
	"github.com/jonathan/creator-persona/internal/types"
)

//go:embed templates/example_persona.txt
var defaultStyleTemplate string

// LoadStyleTemplate reads a style template from path, or returns the built-in
// one when path is empty.
func LoadStyleTemplate(path string) (string, error) {
	if path == "" {
		return defaultStyleTemplate, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &RenderError{Message: fmt.Sprintf("failed to read style template %s", path), Cause: err}
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", &RenderError{Message: fmt.Sprintf("style template %s is empty", path)}
	}
	return string(content), nil
}

// RenderError represents a failed persona rendering
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persona render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("persona render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Renderer produces persona text with one LLM completion.
type Renderer struct {
	Client    llm.Client
	Tier      llm.ModelTier
	MaxTokens int
	Logger    *zap.Logger
}

// NewRenderer creates a renderer using the advanced model tier.
func NewRenderer(client llm.Client, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{Client: client, Tier: llm.TierAdvanced, MaxTokens: 4096, Logger: logger}
}

// Render writes the persona for info in the style of styleTemplate. An empty
// styleTemplate uses the built-in example. Empty model output is an error.
func (r *Renderer) Render(ctx context.Context, info *types.ContentCreatorInfo, styleTemplate string) (string, error) {
	if info == nil {
		return "", &RenderError{Message: "creator record is nil"}
	}
	if strings.TrimSpace(styleTemplate) == "" {
		styleTemplate = defaultStyleTemplate
	}

	record, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", &RenderError{Message: "failed to encode creator record", Cause: err}
	}

	system, err := prompts.Get("persona.json", "system")
	if err != nil {
		return "", &RenderError{Message: "failed to load system prompt", Cause: err}
	}
	prompt, err := prompts.Render("persona.json", "render", map[string]string{
		"StyleTemplate": strings.TrimSpace(styleTemplate),
		"CreatorInfo":   string(record),
		"CreatorName":   displayName(info),
	})
	if err != nil {
		return "", &RenderError{Message: "failed to build prompt", Cause: err}
	}

	r.Logger.Info("rendering persona", zap.String("creator", displayName(info)), zap.String("model", r.Client.GetModel(r.Tier)))

	text, err := r.Client.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		Tier:        r.Tier,
		Temperature: 0.7,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return "", &RenderError{Message: "LLM completion failed", Cause: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &RenderError{Message: "model returned an empty persona"}
	}
	return text, nil
}

func displayName(info *types.ContentCreatorInfo) string {
	if !types.IsPlaceholderText(info.FullName) {
		return info.FullName
	}
	name := types.ComposeFullName(info.FirstName, info.LastName)
	if name == types.UnknownValue {
		return "the creator"
	}
	return name
}
