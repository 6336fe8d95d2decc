package report

import "strings"

// EscapeMarkdown escapes characters that would change inline Markdown
// formatting and flattens newlines so a value stays on its line.
func EscapeMarkdown(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) + 8)

	for _, r := range text {
		switch r {
		case '\\', '`', '*', '_', '[', ']', '<', '>', '|':
			result.WriteByte('\\')
			result.WriteRune(r)
		case '\r':
		case '\n':
			result.WriteByte(' ')
		default:
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
