// Package ranking orders fetched content by how likely it is to reveal the
// creator's personal story.
package ranking

import (
	"sort"

	"github.com/jonathan/creator-persona/internal/types"
)

// DefaultPrefilterLimit caps the items sent to the LLM per platform.
const DefaultPrefilterLimit = 50

// PrefilterByEngagement drops duplicate IDs (first occurrence wins), orders the
// rest by engagement descending and keeps at most limit items. Items with equal
// engagement keep their input order. A limit <= 0 uses DefaultPrefilterLimit.
func PrefilterByEngagement(items []types.ContentItem, limit int) []types.ContentItem {
	if limit <= 0 {
		limit = DefaultPrefilterLimit
	}

	seen := make(map[string]bool, len(items))
	unique := make([]types.ContentItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		unique = append(unique, item)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Engagement > unique[j].Engagement
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}
