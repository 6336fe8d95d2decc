package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/creator-persona/internal/cache"
	"github.com/jonathan/creator-persona/internal/llm"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	CompleteFunc        func(ctx context.Context, req llm.Request) (string, error)
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GetModelFunc        func(tier llm.ModelTier) string
	CloseFunc           func() error
	calls               int
}

func (m *MockLLMClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return m.GenerateContent(ctx, req.Prompt, req.Tier)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.calls++
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "5", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func TestParseRelevanceScore(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"7", 70},
		{"10", 100},
		{"0", 0},
		{"1", 10},
		{" 8\n", 80},
		{"Score: 9", 90},
		{"11", 0},
		{"7/10", 0},
		{"", 0},
		{"high", 0},
		{"99999999999999999999", 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRelevanceScore(tt.input))
		})
	}
}

func item(id string, title string) types.ContentItem {
	return types.ContentItem{
		ID:          id,
		Platform:    types.PlatformYouTube,
		Title:       title,
		PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestScoreItem_PromptContents(t *testing.T) {
	var captured string
	var tier llm.ModelTier
	mockClient := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, prompt string, tr llm.ModelTier) (string, error) {
			captured, tier = prompt, tr
			return "9", nil
		},
	}
	r := NewRanker(mockClient, "Jane Doe", nil)

	score := r.ScoreItem(context.Background(), item("v1", "How I lost everything and started over"))

	assert.Equal(t, 90.0, score)
	assert.Equal(t, llm.TierLite, tier)
	assert.Contains(t, captured, "Jane Doe")
	assert.Contains(t, captured, "How I lost everything and started over")
	assert.Contains(t, captured, "2024-03-01")
	assert.Contains(t, captured, "Rate from 1 to 10")
}

func TestScoreItem_LLMErrorScoresZero(t *testing.T) {
	mockClient := &MockLLMClient{
		GenerateContentFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			return "", errors.New("API rate limit exceeded")
		},
	}
	r := NewRanker(mockClient, "Jane", nil)

	assert.Equal(t, 0.0, r.ScoreItem(context.Background(), item("v1", "title")))
}

func TestRank_SortsTruncatesAndKeepsFailures(t *testing.T) {
	scores := map[string]string{
		"promo":   "1",
		"story":   "10",
		"vlog":    "6",
		"broken":  "",
		"tie-a":   "6",
		"garbage": "seven",
	}
	mockClient := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			for title, score := range scores {
				if strings.Contains(prompt, "\n"+title+"\n") {
					if title == "broken" {
						return "", errors.New("timeout")
					}
					return score, nil
				}
			}
			return "", errors.New("unexpected prompt")
		},
	}
	r := NewRanker(mockClient, "Jane", nil)

	items := []types.ContentItem{
		item("1", "promo"), item("2", "vlog"), item("3", "broken"),
		item("4", "story"), item("5", "tie-a"), item("6", "garbage"),
	}

	ranked, err := r.Rank(context.Background(), items, 10)
	require.NoError(t, err)
	require.Len(t, ranked, len(items), "failed items are kept with score 0")

	ids := make([]string, len(ranked))
	for i, ri := range ranked {
		ids[i] = ri.ID
		assert.GreaterOrEqual(t, ri.RelevanceScore, 0.0)
		assert.LessOrEqual(t, ri.RelevanceScore, 100.0)
	}
	assert.Equal(t, []string{"4", "2", "5", "1", "3", "6"}, ids)

	top, err := r.Rank(context.Background(), items, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "4", top[0].ID)
	assert.Equal(t, "2", top[1].ID)
}

func TestRank_DefaultTopK(t *testing.T) {
	r := NewRanker(&MockLLMClient{}, "Jane", nil)
	items := make([]types.ContentItem, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, item(fmt.Sprintf("v%d", i), "title"))
	}

	ranked, err := r.Rank(context.Background(), items, 0)
	require.NoError(t, err)
	assert.Len(t, ranked, DefaultTopK)
}

func TestRank_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRanker(&MockLLMClient{}, "Jane", nil).Rank(ctx, []types.ContentItem{item("a", "t")}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank_UsesCache(t *testing.T) {
	mockClient := &MockLLMClient{}
	r := NewRanker(mockClient, "Jane", nil)
	r.Cache = cache.NewMemory()
	items := []types.ContentItem{item("a", "t"), item("b", "t")}

	_, err := r.Rank(context.Background(), items, 5)
	require.NoError(t, err)
	_, err = r.Rank(context.Background(), items, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, mockClient.calls)
}
