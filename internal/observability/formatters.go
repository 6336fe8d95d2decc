// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/creator-persona/internal/ingestion"
	"github.com/jonathan/creator-persona/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// PrintContentItems outputs the candidates kept after the engagement prefilter.
func (p *Printer) PrintContentItems(platform types.Platform, fetched int, items []types.ContentItem) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Fetched: %d   Kept: %d\n", fetched, len(items)))

	count := min(len(items), maxItemsToShow)
	if count > 0 {
		sb.WriteString("\n")
	}
	for i := 0; i < count; i++ {
		item := items[i]
		sb.WriteString(fmt.Sprintf("• %s\n", oneLine(item.Title)))
		sb.WriteString(fmt.Sprintf("    %d engagement, %s\n", item.Engagement, item.PublishedAt.Format("2006-01-02")))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(items)-maxItemsToShow))
	}

	p.printBox(strings.ToUpper(string(platform))+" CANDIDATES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRankedItems outputs the top ranked items with their relevance scores.
func (p *Printer) PrintRankedItems(platform types.Platform, items []types.RankedItem) {
	if len(items) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Items ranked: %d\n\n", len(items)))

	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		item := items[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, oneLine(item.Title)))
		sb.WriteString(fmt.Sprintf("    Score: %.0f", item.RelevanceScore))
		if item.IsVideo {
			sb.WriteString("  (video)")
		}
		sb.WriteString("\n")
	}

	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more items", len(items)-maxItemsToShow))
	}

	p.printBox("TOP RANKED "+strings.ToUpper(string(platform))+" CONTENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIngestReport outputs how many items reached the vector store and why the rest did not.
func (p *Printer) PrintIngestReport(report *ingestion.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Attempted: %d   Ingested: %d   Skipped: %d\n", report.Attempted, report.Ingested, len(report.Skipped)))

	if len(report.Skipped) > 0 {
		sb.WriteString("\nSkipped:\n")
		count := min(len(report.Skipped), maxItemsToShow)
		for i := 0; i < count; i++ {
			s := report.Skipped[i]
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", s.ItemID, oneLine(s.Reason)))
		}
		if len(report.Skipped) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Skipped)-maxItemsToShow))
		}
	}

	p.printBox(strings.ToUpper(string(report.Platform))+" INGESTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCreatorInfo outputs a summary of an extracted or merged record.
// Placeholder entries are counted but not listed.
func (p *Printer) PrintCreatorInfo(title string, info *types.ContentCreatorInfo) {
	if info == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", types.ComposeFullName(info.FirstName, info.LastName)))
	if !types.IsPlaceholderText(info.MainLanguage) {
		sb.WriteString(fmt.Sprintf("Language:  %s\n", info.MainLanguage))
	}
	if info.Business != nil && !types.IsPlaceholderText(info.Business.Name) {
		sb.WriteString(fmt.Sprintf("Business:  %s\n", info.Business.Name))
	}
	sb.WriteString("\n")

	var events, values, challenges, achievements []string
	for _, e := range info.LifeEvents {
		events = append(events, e.Name)
	}
	for _, v := range info.Values {
		values = append(values, v.Name)
	}
	for _, c := range info.Challenges {
		challenges = append(challenges, c.Description)
	}
	for _, a := range info.Achievements {
		achievements = append(achievements, a.Description)
	}

	writeSection(&sb, "Life events", events)
	writeSection(&sb, "Values", values)
	writeSection(&sb, "Challenges", challenges)
	writeSection(&sb, "Achievements", achievements)

	p.printBox(strings.ToUpper(title), strings.TrimSuffix(sb.String(), "\n"))
}

func writeSection(sb *strings.Builder, label string, entries []string) {
	var real []string
	for _, e := range entries {
		if !types.IsPlaceholderText(e) {
			real = append(real, e)
		}
	}
	sb.WriteString(fmt.Sprintf("%s: %d\n", label, len(real)))
	count := min(len(real), 3)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", oneLine(real[i])))
	}
	if len(real) > 3 {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(real)-3))
	}
}

// PrintPersona outputs the first lines of the rendered persona.
func (p *Printer) PrintPersona(persona string) {
	persona = strings.TrimSpace(persona)
	if persona == "" {
		return
	}

	lines := strings.Split(persona, "\n")
	shown := min(len(lines), 12)
	content := strings.Join(lines[:shown], "\n")
	if len(lines) > shown {
		content += fmt.Sprintf("\n... (%d more lines)", len(lines)-shown)
	}

	p.printBox("PERSONA", content)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
