package parsing

import (
	"testing"

	"github.com/jonathan/creator-persona/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswer_FencedJSON(t *testing.T) {
	answer := "Here is what I found:\n```json\n" + `{
		"first_name": "Jane",
		"last_name": "Doe",
		"life_events": [{"name": "Moved to Berlin", "description": "In 2015"}],
		"business": {"name": "Doe Studio", "description": "Courses", "genesis": "A blog"},
		"values": [{"name": "Resilience", "origin": "Childhood", "impact_today": "Ships weekly"}],
		"challenges": [{"description": "Burnout", "learnings": "Rest"}],
		"achievements": [{"description": "1M subscribers"}]
	}` + "\n```"

	info := ParseAnswer(answer)

	assert.Equal(t, "Jane", info.FirstName)
	assert.Equal(t, "Doe", info.LastName)
	assert.Equal(t, "Jane Doe", info.FullName)
	require.Len(t, info.LifeEvents, 1)
	assert.Equal(t, "Moved to Berlin", info.LifeEvents[0].Name)
	assert.Equal(t, "Doe Studio", info.Business.Name)
	assert.Equal(t, "Ships weekly", info.Values[0].ImpactToday)
	assert.Equal(t, "Rest", info.Challenges[0].Learnings)
	assert.Equal(t, "1M subscribers", info.Achievements[0].Description)
}

func TestParseAnswer_LooseJSONShapes(t *testing.T) {
	answer := `{"Content Creator Info": {
		"First Name": "Sam",
		"lifeEvents": "Dropped out of college",
		"business": "Runs a bakery",
		"values": ["Honesty", {"value": "Craft"}],
		"achievements": {"achievement": "Opened second shop"}
	}}`

	info := ParseAnswer(answer)

	assert.Equal(t, "Sam", info.FirstName)
	assert.Equal(t, types.UnknownValue, info.LastName)
	assert.Equal(t, []types.LifeEvent{{Description: "Dropped out of college"}}, info.LifeEvents)
	assert.Equal(t, "Runs a bakery", info.Business.Description)
	require.Len(t, info.Values, 2)
	assert.Equal(t, "Honesty", info.Values[0].Name)
	assert.Equal(t, "Craft", info.Values[1].Name)
	assert.Equal(t, "Opened second shop", info.Achievements[0].Description)
}

func TestParseAnswer_MarkdownText(t *testing.T) {
	answer := `**First Name:** Maria
**Last Name:** Lopez
Main language: Spanish

## Significant Life Events
- **Moved to Madrid**: Left home at 18
- Name: First video
  Description: Filmed on a phone

## Business
Name: Lopez Fitness
Description: Online coaching programs
Genesis: Started during lockdown

## Core Values
1. Discipline - Learned from her father
2. **Community**

## Challenges and Learnings
- Injury in 2020
  Learnings: Listen to your body

Achievements:
- Reached 500k followers
`

	info := ParseAnswer(answer)

	assert.Equal(t, "Maria", info.FirstName)
	assert.Equal(t, "Lopez", info.LastName)
	assert.Equal(t, "Spanish", info.MainLanguage)

	require.Len(t, info.LifeEvents, 2)
	assert.Equal(t, types.LifeEvent{Name: "Moved to Madrid", Description: "Left home at 18"}, info.LifeEvents[0])
	assert.Equal(t, types.LifeEvent{Name: "First video", Description: "Filmed on a phone"}, info.LifeEvents[1])

	assert.Equal(t, &types.Business{Name: "Lopez Fitness", Description: "Online coaching programs", Genesis: "Started during lockdown"}, info.Business)

	require.Len(t, info.Values, 2)
	assert.Equal(t, types.Value{Name: "Discipline", Origin: "Learned from her father"}, info.Values[0])
	assert.Equal(t, "Community", info.Values[1].Name)

	require.Len(t, info.Challenges, 1)
	assert.Equal(t, types.Challenge{Description: "Injury in 2020", Learnings: "Listen to your body"}, info.Challenges[0])

	require.Len(t, info.Achievements, 1)
	assert.Equal(t, "Reached 500k followers", info.Achievements[0].Description)
}

func TestParseAnswer_GarbageYieldsPlaceholders(t *testing.T) {
	for _, answer := range []string{"", "I don't know.", "{not json", "```\n```"} {
		info := ParseAnswer(answer)
		assert.Equal(t, types.NewDefaultCreatorInfo(), info, "answer %q", answer)
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "impacttoday", normalizeLabel("Impact_Today"))
	assert.Equal(t, "firstname", normalizeLabel("**First Name**"))
}
