package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get("ranking.json", "relevance-score")
	require.NoError(t, err)
	assert.Contains(t, prompt, "Rate from 1 to 10")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt file nonexistent.json not found")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get("ranking.json", "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFormat(t *testing.T) {
	result := Format("Hello {{.Name}}, welcome to {{.Platform}}! {{.Unknown}}", map[string]string{
		"Name":     "Alice",
		"Platform": "YouTube",
	})
	assert.Equal(t, "Hello Alice, welcome to YouTube! {{.Unknown}}", result)
}

func TestFormat_ValuesAreNotExpanded(t *testing.T) {
	result := Format("Q: {{.Question}} C: {{.Context}}", map[string]string{
		"Question": "What does {{.Context}} mean?",
		"Context":  "a transcript",
	})
	assert.Equal(t, "Q: What does {{.Context}} mean? C: a transcript", result)
}

func TestRender_MissingValue(t *testing.T) {
	_, err := Render("rag.json", "answer-question", map[string]string{"Question": "Who?"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Context")
}

func TestRender_AllFilled(t *testing.T) {
	out, err := Render("rag.json", "answer-question", map[string]string{"Question": "Who?", "Context": "ctx"})
	require.NoError(t, err)
	assert.Contains(t, out, "Who?")
	assert.NotContains(t, out, "{{.")
}

func TestRender_ValueWithPlaceholderSyntax(t *testing.T) {
	out, err := Render("rag.json", "answer-question", map[string]string{
		"Question": "Who?",
		"Context":  "caption said {{.Name}}",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "caption said {{.Name}}")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Placeholders("{{.B}} {{.A}} {{.B}}"))
	assert.Empty(t, Placeholders("none"))
}

// Every prompt the code renders must exist and declare exactly the placeholders
// its caller fills.
func TestPromptFiles_Placeholders(t *testing.T) {
	tests := []struct {
		file string
		key  string
		want []string
	}{
		{"ranking.json", "relevance-score", []string{"Creator", "Platform", "PublishedAt", "Title"}},
		{"extraction.json", "initial-info", []string{"Creator", "Platform"}},
		{"extraction.json", "follow-up-info", []string{"Creator", "Platform"}},
		{"rag.json", "answer-question", []string{"Context", "Question"}},
		{"persona.json", "system", nil},
		{"persona.json", "render", []string{"CreatorInfo", "CreatorName", "StyleTemplate"}},
	}

	for _, tt := range tests {
		t.Run(tt.file+"/"+tt.key, func(t *testing.T) {
			prompt, err := Get(tt.file, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Placeholders(prompt))
		})
	}
}

func TestCatalog_LoadsEveryFile(t *testing.T) {
	all, err := catalog()
	require.NoError(t, err)
	for _, name := range []string{"extraction.json", "persona.json", "rag.json", "ranking.json"} {
		assert.NotEmpty(t, all[name], name)
	}
}
