package ingestion

import (
	"regexp"
	"strings"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines   = regexp.MustCompile(`\n\n\n+`)
	captionNoise = regexp.MustCompile(`(?i)\[(music|applause|laughter|inaudible)\]`)
)

// CleanText normalizes transcript text: line endings become LF, runs of
// spaces collapse, bracketed sound cues are dropped and at most one blank
// line separates paragraphs.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = captionNoise.ReplaceAllString(content, "")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, strings.TrimSpace(spaceRun.ReplaceAllString(line, " ")))
	}

	result := blankLines.ReplaceAllString(strings.Join(cleaned, "\n"), "\n\n")
	return strings.TrimSpace(result)
}
