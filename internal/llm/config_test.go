package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigFor_Tiers(t *testing.T) {
	tests := []struct {
		provider Provider
		want     Provider
		baseURL  string
		models   [3]string // lite, standard, advanced
	}{
		{ProviderGemini, ProviderGemini, "", [3]string{"gemini-2.5-flash-lite", "gemini-2.5-flash", "gemini-2.5-pro"}},
		{ProviderOpenAI, ProviderOpenAI, "", [3]string{"gpt-4.1-nano", "gpt-4.1-mini", "gpt-4.1"}},
		{ProviderGroq, ProviderGroq, GroqBaseURL, [3]string{"llama-3.1-8b-instant", "llama-3.3-70b-versatile", "llama-3.3-70b-versatile"}},
		{"mistral", ProviderGemini, "", [3]string{"gemini-2.5-flash-lite", "gemini-2.5-flash", "gemini-2.5-pro"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			cfg := ConfigFor(tt.provider)
			assert.Equal(t, tt.want, cfg.Provider)
			assert.Equal(t, tt.baseURL, cfg.BaseURL)
			assert.Equal(t, tt.models[0], cfg.GetModel(TierLite))
			assert.Equal(t, tt.models[1], cfg.GetModel(TierStandard))
			assert.Equal(t, tt.models[2], cfg.GetModel(TierAdvanced))
		})
	}

	assert.Equal(t, ProviderGemini, DefaultConfig().Provider)
}

func TestGetModel_FallsBackToStandardThenLite(t *testing.T) {
	both := &Config{Models: map[ModelTier]string{TierLite: "small", TierStandard: "medium"}}
	assert.Equal(t, "medium", both.GetModel(TierAdvanced))

	liteOnly := &Config{Models: map[ModelTier]string{TierLite: "small"}}
	assert.Equal(t, "small", liteOnly.GetModel(TierAdvanced))

	assert.Equal(t, "", (&Config{}).GetModel(TierStandard))
}

func TestWithModel_CopiesConfig(t *testing.T) {
	base := DefaultGroqConfig()
	custom := base.WithModel(TierAdvanced, "mixtral-8x7b")

	assert.Equal(t, "mixtral-8x7b", custom.GetModel(TierAdvanced))
	assert.Equal(t, "llama-3.3-70b-versatile", base.GetModel(TierAdvanced), "original untouched")
	assert.Equal(t, base.GetModel(TierLite), custom.GetModel(TierLite))
	assert.Equal(t, GroqBaseURL, custom.BaseURL)

	empty := (&Config{Provider: ProviderOpenAI}).WithModel(TierLite, "gpt-4.1-nano")
	assert.Equal(t, "gpt-4.1-nano", empty.GetModel(TierLite))
}
