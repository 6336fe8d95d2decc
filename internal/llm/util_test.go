package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"first_name": "Ana"}`, `{"first_name": "Ana"}`},
		{"json fence", "```json\n{\"first_name\": \"Ana\"}\n```", `{"first_name": "Ana"}`},
		{"fence without language", "```\n[{\"id\": \"v1\", \"score\": 80}]\n```", `[{"id": "v1", "score": 80}]`},
		{"javascript fence", "```javascript\n{\"main_language\": \"pt\"}\n```", `{"main_language": "pt"}`},
		{"fence on one line", "```{\"values\": []}```", `{"values": []}`},
		{"preamble", "Here is the extracted record:\n\n{\"business\": {\"name\": \"Ana Bakes\"}}", `{"business": {"name": "Ana Bakes"}}`},
		{"trailing remark", "{\"last_name\": \"Silva\"}\n\nLet me know if you need more detail.", `{"last_name": "Silva"}`},
		{"preamble inside fence", "```json\nSure! {\"first_name\": \"Ana\"}\n```", `{"first_name": "Ana"}`},
		{"array after preamble", "Scores:\n[{\"id\": \"p1\", \"score\": 40}] done", `[{"id": "p1", "score": 40}]`},
		{"braces inside strings", `{"description": "uses {curly} and [square] marks"}`, `{"description": "uses {curly} and [square] marks"}`},
		{"escaped quotes", `Result: {"quote": "she said \"bake daily\""} ok`, `{"quote": "she said \"bake daily\""}`},
		{"no json", "I could not find anything.", "I could not find anything."},
		{"unbalanced", `{"first_name": "Ana"`, `{"first_name": "Ana"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}

func TestBalancedEnd(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{`{"a": {"b": [1, 2]}} tail`, len(`{"a": {"b": [1, 2]}}`)},
		{`[{"id": "v1"}, {"id": "v2"}] and more`, len(`[{"id": "v1"}, {"id": "v2"}]`)},
		{`["a]b"]`, len(`["a]b"]`)},
		{`{"a": [1, 2}`, 0},
		{`{"never": "closed"`, 0},
		{`}`, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, balancedEnd(tt.input), tt.input)
	}
}
