package ranking

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/cache"
	"github.com/jonathan/creator-persona/internal/llm"
	"github.com/jonathan/creator-persona/internal/prompts"
	"github.com/jonathan/creator-persona/internal/types"
)

// DefaultTopK is the number of items kept after ranking.
const DefaultTopK = 10

// MaxRawScore is the upper bound of the LLM's 1-10 rating.
const MaxRawScore = 10

// ParseRelevanceScore converts an LLM rating into a 0-100 score. Every
// non-digit character is discarded; an empty result or a value outside
// [0, MaxRawScore] scores 0.
func ParseRelevanceScore(text string) float64 {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 || digits.Len() > 3 {
		return 0
	}
	value, err := strconv.Atoi(digits.String())
	if err != nil || value < 0 || value > MaxRawScore {
		return 0
	}
	return float64(value * 10)
}

// Ranker scores items with one LLM call each.
type Ranker struct {
	Client  llm.Client
	Creator string
	// Cache, when set, stores scores per platform and item ID.
	Cache  cache.Cache
	TTL    time.Duration
	Logger *zap.Logger
}

// NewRanker creates a Ranker for creator's content.
func NewRanker(client llm.Client, creator string, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{Client: client, Creator: creator, Cache: cache.Nop{}, TTL: cache.DefaultTTL, Logger: logger}
}

// ScoreItem returns the 0-100 relevance score of one item. It never fails:
// LLM errors and unparseable replies score 0.
func (r *Ranker) ScoreItem(ctx context.Context, item types.ContentItem) float64 {
	key := cache.ScoreKey(item.Platform, item.ID)
	var cached float64
	if found, err := r.cache().Get(ctx, key, &cached); err == nil && found {
		return cached
	}

	prompt, err := buildScorePrompt(item, r.Creator)
	if err != nil {
		r.logger().Warn("relevance prompt failed", zap.String("item", item.ID), zap.Error(err))
		return 0
	}

	reply, err := r.Client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil {
		r.logger().Warn("relevance scoring failed", zap.String("item", item.ID), zap.Error(err))
		return 0
	}

	score := ParseRelevanceScore(reply)
	if err := r.cache().Set(ctx, key, score, r.TTL); err != nil {
		r.logger().Debug("score not cached", zap.String("item", item.ID), zap.Error(err))
	}
	return score
}

// Rank scores every item, sorts them by score descending (ties keep input
// order) and keeps the first topK. A topK <= 0 uses DefaultTopK. Only context
// cancellation returns an error.
func (r *Ranker) Rank(ctx context.Context, items []types.ContentItem, topK int) ([]types.RankedItem, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	ranked := make([]types.RankedItem, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ranking cancelled: %w", err)
		}
		ranked = append(ranked, types.RankedItem{ContentItem: item, RelevanceScore: r.ScoreItem(ctx, item)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	r.logger().Info("ranked content", zap.Int("scored", len(items)), zap.Int("kept", len(ranked)))
	return ranked, nil
}

func (r *Ranker) cache() cache.Cache {
	if r.Cache == nil {
		return cache.Nop{}
	}
	return r.Cache
}

func (r *Ranker) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// buildScorePrompt fills the relevance prompt for one item.
func buildScorePrompt(item types.ContentItem, creator string) (string, error) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = types.NotSpecifiedValue
	}
	if creator == "" {
		creator = types.UnknownValue
	}
	published := types.UnknownValue
	if !item.PublishedAt.IsZero() {
		published = item.PublishedAt.Format("2006-01-02")
	}

	return prompts.Render("ranking.json", "relevance-score", map[string]string{
		"Platform":    string(item.Platform),
		"Creator":     creator,
		"Title":       title,
		"PublishedAt": published,
	})
}
