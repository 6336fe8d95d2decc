// Package types provides type definitions for structured data used throughout the creator-persona system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"
)

// Platform identifies a content source
type Platform string

const (
	// PlatformYouTube is the YouTube video platform
	PlatformYouTube Platform = "youtube"
	// PlatformInstagram is the Instagram post platform
	PlatformInstagram Platform = "instagram"
)

// Platforms lists every supported platform in pipeline order
var Platforms = []Platform{PlatformYouTube, PlatformInstagram}

// ParsePlatform converts a user-supplied string into a Platform
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformYouTube, PlatformInstagram:
		return Platform(s), nil
	default:
		return "", fmt.Errorf("unknown platform %q (expected youtube or instagram)", s)
	}
}

// ContentItem is one fetched video or post, before ranking
type ContentItem struct {
	ID          string    `json:"id"`
	Platform    Platform  `json:"platform"`
	Title       string    `json:"title"` // video title or post caption
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"url"`
	Engagement  int64     `json:"engagement"` // views for videos, likes for posts
	IsVideo     bool      `json:"is_video"`
	// MediaURL is the direct video URL for Instagram video posts
	MediaURL string `json:"media_url,omitempty"`
}

// RankedItem is a ContentItem with its relevance score in [0, 100]
type RankedItem struct {
	ContentItem
	RelevanceScore float64 `json:"relevance_score"`
}

// RankedItems represents the ranked, truncated candidate list for one platform
type RankedItems struct {
	Platform Platform     `json:"platform"`
	Creator  string       `json:"creator"`
	Items    []RankedItem `json:"items"`
}

// TranscriptRecord is the text recovered from one content item
type TranscriptRecord struct {
	SourceItemID string         `json:"source_item_id"`
	Text         string         `json:"text"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Duration     *float64       `json:"duration,omitempty"` // seconds
	Metadata     map[string]any `json:"metadata,omitempty"`
}
