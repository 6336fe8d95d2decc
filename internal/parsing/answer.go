package parsing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jonathan/creator-persona/internal/llm"
	"github.com/jonathan/creator-persona/internal/types"
)

// ParseAnswer extracts a ContentCreatorInfo from a free-text LLM answer. It tries
// an embedded JSON object first and falls back to line-based parsing. The result
// is always total; fields that could not be recovered hold placeholders.
func ParseAnswer(text string) *types.ContentCreatorInfo {
	info := parseJSONAnswer(text)
	if info == nil {
		info = parseTextAnswer(text)
	}
	info.EnsureDefaults()
	return info
}

// parseJSONAnswer returns nil when text holds no decodable JSON object.
func parseJSONAnswer(text string) *types.ContentCreatorInfo {
	cleaned := llm.CleanJSONBlock(text)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &m); err != nil {
		return nil
	}
	return fromLooseMap(unwrapEnvelope(m))
}

// unwrapEnvelope descends into {"content_creator_info": {...}} style wrappers.
func unwrapEnvelope(m map[string]any) map[string]any {
	for range 3 {
		if hasKnownKey(m) || len(m) != 1 {
			return m
		}
		for _, v := range m {
			inner, ok := v.(map[string]any)
			if !ok {
				return m
			}
			m = inner
		}
	}
	return m
}

func hasKnownKey(m map[string]any) bool {
	for k := range m {
		if _, ok := sectionAliases[normalizeLabel(k)]; ok {
			return true
		}
		if _, ok := scalarAliases[normalizeLabel(k)]; ok {
			return true
		}
	}
	return false
}

func fromLooseMap(m map[string]any) *types.ContentCreatorInfo {
	info := &types.ContentCreatorInfo{}
	for k, v := range m {
		label := normalizeLabel(k)
		if field, ok := scalarAliases[label]; ok {
			setScalar(info, field, stringify(v))
			continue
		}
		section, ok := sectionAliases[label]
		if !ok {
			continue
		}
		for _, item := range looseItems(v) {
			addItem(info, section, item)
		}
	}
	return info
}

// looseItems coerces a list, a single object, or a bare string into item field maps.
func looseItems(v any) []map[string]string {
	switch val := v.(type) {
	case []any:
		var out []map[string]string
		for _, el := range val {
			out = append(out, looseItems(el)...)
		}
		return out
	case map[string]any:
		fields := make(map[string]string, len(val))
		for k, fv := range val {
			fields[normalizeLabel(k)] = stringify(fv)
		}
		return []map[string]string{fields}
	case nil:
		return nil
	default:
		s := strings.TrimSpace(stringify(val))
		if s == "" {
			return nil
		}
		return []map[string]string{{"": s}}
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, el := range val {
			if s := stringify(el); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// normalizeLabel lowercases s and drops everything but letters.
func normalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

type scalarField int

const (
	fieldFirstName scalarField = iota
	fieldLastName
	fieldFullName
	fieldMainLanguage
)

var scalarAliases = map[string]scalarField{
	"firstname":    fieldFirstName,
	"givenname":    fieldFirstName,
	"lastname":     fieldLastName,
	"surname":      fieldLastName,
	"familyname":   fieldLastName,
	"fullname":     fieldFullName,
	"name":         fieldFullName,
	"mainlanguage": fieldMainLanguage,
	"language":     fieldMainLanguage,
}

type section int

const (
	sectionNone section = iota
	sectionLifeEvents
	sectionBusiness
	sectionValues
	sectionChallenges
	sectionAchievements
)

var sectionAliases = map[string]section{
	"lifeevents":             sectionLifeEvents,
	"significantlifeevents":  sectionLifeEvents,
	"keylifeevents":          sectionLifeEvents,
	"business":               sectionBusiness,
	"primarybusiness":        sectionBusiness,
	"values":                 sectionValues,
	"corevalues":             sectionValues,
	"challenges":             sectionChallenges,
	"challengesandlearnings": sectionChallenges,
	"achievements":           sectionAchievements,
	"keyachievements":        sectionAchievements,
	"notableachievements":    sectionAchievements,
}

func setScalar(info *types.ContentCreatorInfo, field scalarField, value string) {
	value = strings.Trim(strings.TrimSpace(value), `*"`)
	if value == "" {
		return
	}
	switch field {
	case fieldFirstName:
		info.FirstName = value
	case fieldLastName:
		info.LastName = value
	case fieldFullName:
		info.FullName = value
	case fieldMainLanguage:
		info.MainLanguage = value
	}
}

// pick returns the first non-empty field among keys. The empty key holds
// untitled free text.
func pick(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return ""
}

func addItem(info *types.ContentCreatorInfo, sec section, f map[string]string) {
	switch sec {
	case sectionLifeEvents:
		ev := types.LifeEvent{
			Name:        pick(f, "name", "event", "title"),
			Description: pick(f, "description", "details", "summary", ""),
		}
		if ev != (types.LifeEvent{}) {
			info.LifeEvents = append(info.LifeEvents, ev)
		}
	case sectionBusiness:
		b := types.Business{
			Name:        pick(f, "name", "businessname", "company"),
			Description: pick(f, "description", "details", ""),
			Genesis:     pick(f, "genesis", "origin", "founded", "history"),
		}
		if info.Business == nil {
			info.Business = &types.Business{}
		}
		if info.Business.Name == "" {
			info.Business.Name = b.Name
		}
		if info.Business.Description == "" {
			info.Business.Description = b.Description
		}
		if info.Business.Genesis == "" {
			info.Business.Genesis = b.Genesis
		}
	case sectionValues:
		v := types.Value{
			Name:        pick(f, "name", "value", "title", ""),
			Origin:      pick(f, "origin", "description", "details"),
			ImpactToday: pick(f, "impacttoday", "impact", "currentimpact"),
		}
		if v != (types.Value{}) {
			info.Values = append(info.Values, v)
		}
	case sectionChallenges:
		c := types.Challenge{
			Description: pick(f, "description", "challenge", "name", "title", ""),
			Learnings:   pick(f, "learnings", "learning", "lessons", "lessonslearned"),
		}
		if c != (types.Challenge{}) {
			info.Challenges = append(info.Challenges, c)
		}
	case sectionAchievements:
		a := types.Achievement{Description: pick(f, "description", "achievement", "name", "title", "")}
		if a != (types.Achievement{}) {
			info.Achievements = append(info.Achievements, a)
		}
	}
}
