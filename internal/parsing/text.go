package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/creator-persona/internal/types"
)

var (
	headingLine  = regexp.MustCompile(`^\s*#{1,6}\s*(.+?)\s*:?\s*$`)
	labelledLine = regexp.MustCompile(`^\s*[>*_]*\s*([A-Za-z][A-Za-z _/-]{0,40}?)\s*[*_]*\s*:\s*[*_]*\s*(.*?)\s*[*_]*\s*$`)
	bulletLine   = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s+(.*)$`)
	boldTitle    = regexp.MustCompile(`^\*\*(.+?)\*\*\s*[:\-–—]?\s*(.*)$`)
	dashTitle    = regexp.MustCompile(`^(.{1,60}?)\s+[-–—]\s+(.+)$`)
)

// itemFields are the labels recognised inside a list item.
var itemFields = map[string]bool{
	"name": true, "title": true, "event": true, "value": true,
	"description": true, "details": true, "summary": true,
	"origin": true, "genesis": true, "founded": true, "history": true,
	"impacttoday": true, "impact": true, "currentimpact": true,
	"challenge": true, "learnings": true, "learning": true, "lessons": true, "lessonslearned": true,
	"achievement": true, "businessname": true, "company": true,
}

type textParser struct {
	info    *types.ContentCreatorInfo
	section section
	current map[string]string
}

// parseTextAnswer recovers fields from markdown-ish text: "Label: value" lines,
// section headings, and bullet lists under them.
func parseTextAnswer(text string) *types.ContentCreatorInfo {
	p := &textParser{info: &types.ContentCreatorInfo{}}
	for _, line := range strings.Split(text, "\n") {
		p.line(line)
	}
	p.flush()
	return p.info
}

func (p *textParser) line(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	if m := headingLine.FindStringSubmatch(line); m != nil {
		if sec, ok := sectionAliases[normalizeLabel(m[1])]; ok {
			p.enter(sec)
		}
		return
	}

	isBullet := false
	if m := bulletLine.FindStringSubmatch(line); m != nil {
		line, isBullet = m[1], true
	}

	var label, value string
	labelled := false
	if m := labelledLine.FindStringSubmatch(line); m != nil {
		label, value, labelled = normalizeLabel(m[1]), strings.TrimSpace(m[2]), true
	}

	if labelled {
		if sec, ok := sectionAliases[label]; ok {
			p.enter(sec)
			if value != "" {
				p.current = map[string]string{"": value}
			}
			return
		}
		if field, ok := scalarAliases[label]; ok && value != "" && p.section == sectionNone {
			setScalar(p.info, field, value)
			return
		}
	}

	if p.section == sectionNone {
		return
	}

	if isBullet {
		p.flush()
		p.current = map[string]string{}
		p.bullet(line)
		return
	}

	if labelled && itemFields[label] {
		if p.current == nil {
			p.current = map[string]string{}
		}
		if _, taken := p.current[label]; taken {
			p.flush()
			p.current = map[string]string{}
		}
		p.current[label] = value
		return
	}

	if field, ok := scalarAliases[label]; labelled && ok && value != "" {
		p.flush()
		p.section = sectionNone
		setScalar(p.info, field, value)
		return
	}

	if p.current == nil {
		p.current = map[string]string{}
	}
	p.current[""] = strings.TrimSpace(p.current[""] + " " + strings.TrimSpace(line))
}

func (p *textParser) enter(sec section) {
	p.flush()
	p.section = sec
}

// bullet splits one bullet's text into fields.
func (p *textParser) bullet(content string) {
	content = strings.TrimSpace(content)

	if m := labelledLine.FindStringSubmatch(content); m != nil && itemFields[normalizeLabel(m[1])] {
		p.current[normalizeLabel(m[1])] = strings.TrimSpace(m[2])
		return
	}
	if m := boldTitle.FindStringSubmatch(content); m != nil {
		p.setTitle(strings.Trim(m[1], ": "), m[2])
		return
	}
	if m := dashTitle.FindStringSubmatch(content); m != nil {
		p.setTitle(m[1], m[2])
		return
	}
	if idx := strings.Index(content, ": "); idx > 0 && idx <= 60 {
		p.setTitle(content[:idx], content[idx+2:])
		return
	}
	p.current[""] = strings.Trim(content, "*")
}

// setTitle stores a "Title: rest" bullet. Challenges and achievements have no
// name field, so the whole text becomes their description.
func (p *textParser) setTitle(title, rest string) {
	title, rest = strings.TrimSpace(title), strings.TrimSpace(rest)
	switch p.section {
	case sectionChallenges, sectionAchievements:
		if rest == "" {
			p.current["description"] = title
		} else {
			p.current["description"] = title + ": " + rest
		}
	default:
		p.current["name"] = title
		if rest != "" {
			p.current["description"] = rest
		}
	}
}

func (p *textParser) flush() {
	if len(p.current) > 0 && p.section != sectionNone {
		addItem(p.info, p.section, p.current)
	}
	p.current = nil
}
