package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/creator-persona/internal/types"
	"github.com/jonathan/creator-persona/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStore implements vectorstore.Store for testing
type MockStore struct {
	QueryFunc func(ctx context.Context, prompt string) (string, error)
	questions []string
}

func (m *MockStore) Add(context.Context, vectorstore.Document) error { return nil }
func (m *MockStore) Reset(context.Context) error                     { return nil }

func (m *MockStore) Query(ctx context.Context, prompt string) (string, error) {
	m.questions = append(m.questions, prompt)
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, prompt)
	}
	return "", nil
}

const initialAnswer = "```json\n" + `{
  "first_name": "Jane",
  "last_name": "Doe",
  "main_language": "English",
  "business": {"name": "Doe Bakes", "description": "A sourdough bakery", "genesis": "Started in her kitchen"},
  "life_events": [{"name": "Moved to Lisbon", "description": "Relocated in 2019"}],
  "values": [{"name": "Honesty", "origin": "Her grandmother", "impact_today": "Transparent pricing"}]
}` + "\n```"

const followUpAnswer = `{
  "challenges": [{"description": "Bakery flooded", "learnings": "Get insurance"}],
  "achievements": [{"description": "Opened a second shop"}],
  "values": [{"name": "Honesty", "origin": "duplicate"}, {"name": "Craft", "origin": "Apprenticeship"}]
}`

func answerByPass(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "challenges") {
		return followUpAnswer, nil
	}
	return initialAnswer, nil
}

func TestExtract_MergesBothPasses(t *testing.T) {
	store := &MockStore{QueryFunc: answerByPass}
	e := NewExtractor(store, "Jane Doe", nil)

	info, err := e.Extract(context.Background(), types.PlatformYouTube)
	require.NoError(t, err)

	require.Len(t, store.questions, 2)
	assert.Contains(t, store.questions[0], "YouTube")
	assert.Contains(t, store.questions[0], "Jane Doe")

	assert.Equal(t, "Jane", info.FirstName)
	assert.Equal(t, "Doe", info.LastName)
	assert.Equal(t, "Doe Bakes", info.Business.Name)
	require.Len(t, info.Values, 2)
	assert.Equal(t, "Honesty", info.Values[0].Name)
	assert.Equal(t, "Her grandmother", info.Values[0].Origin, "initial pass wins ties")
	assert.Equal(t, "Craft", info.Values[1].Name)
	assert.Equal(t, "Bakery flooded", info.Challenges[0].Description)
	assert.Equal(t, "Opened a second shop", info.Achievements[0].Description)
}

func TestExtract_EmptyStoreGivesPlaceholders(t *testing.T) {
	info, err := NewExtractor(&MockStore{}, "Jane", nil).Extract(context.Background(), types.PlatformInstagram)
	require.NoError(t, err)

	assert.Equal(t, types.UnknownValue, info.FirstName)
	assert.Equal(t, []types.LifeEvent{types.DefaultLifeEvent()}, info.LifeEvents)
	assert.Equal(t, types.DefaultBusiness(), info.Business)
}

func TestExtract_OnePassFails(t *testing.T) {
	store := &MockStore{QueryFunc: func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "challenges") {
			return "", errors.New("connection reset")
		}
		return answerByPass(ctx, prompt)
	}}

	info, err := NewExtractor(store, "Jane", nil).Extract(context.Background(), types.PlatformYouTube)
	require.NoError(t, err)
	assert.Equal(t, "Jane", info.FirstName)
	assert.Equal(t, []types.Challenge{types.DefaultChallenge()}, info.Challenges)
}

func TestExtract_AllPassesFail(t *testing.T) {
	store := &MockStore{QueryFunc: func(context.Context, string) (string, error) {
		return "", &vectorstore.Error{Op: "query", Message: "unreachable"}
	}}

	info, err := NewExtractor(store, "Jane", nil).Extract(context.Background(), types.PlatformYouTube)
	require.Error(t, err)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, types.PlatformYouTube, qe.Platform)
	require.NotNil(t, info, "placeholders come back with the error")
	assert.Equal(t, types.UnknownValue, info.LastName)
}

func TestExtractPass_GarbageAnswer(t *testing.T) {
	store := &MockStore{QueryFunc: func(context.Context, string) (string, error) {
		return "I could not find anything about that.", nil
	}}

	info, err := NewExtractor(store, "", nil).ExtractPass(context.Background(), types.PlatformYouTube, PassInitial)
	require.NoError(t, err)
	assert.Equal(t, types.UnknownValue, info.FirstName)
	assert.Contains(t, store.questions[0], "this creator")
}

func TestBuildQuestion(t *testing.T) {
	for _, pass := range Passes {
		q, err := BuildQuestion(types.PlatformInstagram, pass, "Ana")
		require.NoError(t, err)
		assert.Contains(t, q, "Instagram")
		assert.Contains(t, q, "Ana")
	}
}
