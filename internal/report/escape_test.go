package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "Hello world", "Hello world"},
		{"emphasis", "*bold* and _it_", `\*bold\* and \_it\_`},
		{"links", "[x](y)", `\[x\](y)`},
		{"table pipe", "a|b", `a\|b`},
		{"newlines", "line one\r\nline two\n", "line one line two"},
		{"backslash", `a\b`, `a\\b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeMarkdown(tt.input))
		})
	}
}
