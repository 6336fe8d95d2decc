package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("youtube")
	require.NoError(t, err)
	assert.Equal(t, PlatformYouTube, p)

	p, err = ParsePlatform("instagram")
	require.NoError(t, err)
	assert.Equal(t, PlatformInstagram, p)

	_, err = ParsePlatform("tiktok")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown platform")
}

func TestEnsureDefaults_EmptyRecord(t *testing.T) {
	info := &ContentCreatorInfo{}
	info.EnsureDefaults()

	assert.Equal(t, UnknownValue, info.FirstName)
	assert.Equal(t, UnknownValue, info.LastName)
	assert.Equal(t, UnknownValue, info.FullName)
	assert.Equal(t, UnknownValue, info.MainLanguage)
	assert.Equal(t, []LifeEvent{DefaultLifeEvent()}, info.LifeEvents)
	assert.Equal(t, DefaultBusiness(), info.Business)
	assert.Equal(t, []Value{DefaultValue()}, info.Values)
	assert.Equal(t, []Challenge{DefaultChallenge()}, info.Challenges)
	assert.Equal(t, []Achievement{DefaultAchievement()}, info.Achievements)
}

func TestEnsureDefaults_KeepsRealData(t *testing.T) {
	info := &ContentCreatorInfo{
		FirstName:  "Jane",
		LastName:   "Doe",
		LifeEvents: []LifeEvent{{Name: "Moved", Description: "Moved to Berlin"}},
		Business:   &Business{Name: "Acme", Description: "Courses"},
	}
	info.EnsureDefaults()

	assert.Equal(t, "Jane Doe", info.FullName)
	assert.Equal(t, "Moved", info.LifeEvents[0].Name)
	assert.Equal(t, "Acme", info.Business.Name)
	assert.Len(t, info.Values, 1)
}

func TestComposeFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", ComposeFullName("Jane", "Doe"))
	assert.Equal(t, "Jane", ComposeFullName("Jane", UnknownValue))
	assert.Equal(t, UnknownValue, ComposeFullName("", " "))
}

func TestIsPlaceholderText(t *testing.T) {
	assert.True(t, IsPlaceholderText(""))
	assert.True(t, IsPlaceholderText("  "))
	assert.True(t, IsPlaceholderText(UnknownValue))
	assert.True(t, IsPlaceholderText(NoInformationValue))
	assert.False(t, IsPlaceholderText("Jane"))
}

func TestContentCreatorInfo_JSONShape(t *testing.T) {
	info := NewDefaultCreatorInfo()

	data, err := json.Marshal(info)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"first_name", "last_name", "life_events", "business", "values", "challenges", "achievements"} {
		assert.Contains(t, raw, key)
	}
	business := raw["business"].(map[string]any)
	assert.Equal(t, NotSpecifiedValue, business["name"])
	values := raw["values"].([]any)
	assert.Contains(t, values[0].(map[string]any), "impact_today")
}

func TestRankedItem_EmbedsContentItem(t *testing.T) {
	item := RankedItem{
		ContentItem:    ContentItem{ID: "abc", Platform: PlatformYouTube, Title: "Day in the life", Engagement: 1200},
		RelevanceScore: 80,
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"abc"`)
	assert.Contains(t, string(data), `"relevance_score":80`)
}
