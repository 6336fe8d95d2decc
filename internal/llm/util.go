package llm

import (
	"regexp"
	"strings"
)

// fenced matches a whole reply wrapped in a markdown code fence, with an
// optional language tag on the opening line.
var fenced = regexp.MustCompile("(?s)^```[\\w-]*[ \\t]*\\n?(.*?)\\n?[ \\t]*```")

// CleanJSONBlock strips markdown fences, chatty preambles and trailing
// remarks from a model reply, leaving the first JSON object or array. Text
// without a balanced JSON value is returned trimmed.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if m := fenced.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if end := balancedEnd(text[start:]); end > 0 {
		return text[start : start+end]
	}
	return text
}

// balancedEnd returns the length of the JSON value opening s, ignoring
// brackets inside strings, or 0 when it never closes.
func balancedEnd(s string) int {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1
			}
		}
	}
	return 0
}
