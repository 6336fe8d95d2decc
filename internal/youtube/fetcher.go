// Package youtube lists a channel's videos through the Data API and recovers
// video transcripts from captions or the rendered transcript panel.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/types"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	maxPageSize  = 50 // playlistItems.list and videos.list cap
	watchURLBase = "https://www.youtube.com/watch?v="
)

// Fetcher lists the most recent uploads of a channel with view counts.
type Fetcher struct {
	service *youtube.Service
	logger  *zap.Logger
}

// NewFetcher creates a Data API client. Extra options (endpoint, HTTP client)
// are appended after the API key.
func NewFetcher(ctx context.Context, apiKey string, logger *zap.Logger, opts ...option.ClientOption) (*Fetcher, error) {
	if apiKey == "" && len(opts) == 0 {
		return nil, fmt.Errorf("YouTube API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := make([]option.ClientOption, 0, len(opts)+1)
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Fetcher{service: service, logger: logger}, nil
}

// FetchChannel returns up to limit uploads of the channel, newest first.
// handle is "@name" or a "UC..." channel ID.
func (f *Fetcher) FetchChannel(ctx context.Context, handle string, limit int) ([]types.ContentItem, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, &FetchError{Handle: handle, Message: "empty channel handle"}
	}
	if limit <= 0 {
		return nil, nil
	}

	uploads, err := f.uploadsPlaylist(ctx, handle)
	if err != nil {
		return nil, err
	}

	ids, err := f.playlistVideoIDs(ctx, handle, uploads, limit)
	if err != nil {
		return nil, err
	}

	items := make([]types.ContentItem, 0, len(ids))
	for start := 0; start < len(ids); start += maxPageSize {
		end := min(start+maxPageSize, len(ids))
		batch, err := f.videoDetails(ctx, handle, ids[start:end])
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}

	f.logger.Info("fetched youtube videos",
		zap.String("handle", handle),
		zap.Int("playlist", len(ids)),
		zap.Int("items", len(items)))
	return items, nil
}

func (f *Fetcher) uploadsPlaylist(ctx context.Context, handle string) (string, error) {
	call := f.service.Channels.List([]string{"contentDetails"}).Context(ctx)
	if isChannelID(handle) {
		call = call.Id(handle)
	} else {
		call = call.ForHandle(handle)
	}

	resp, err := call.Do()
	if err != nil {
		return "", wrapAPIError(handle, "channels.list failed", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil || resp.Items[0].ContentDetails.RelatedPlaylists == nil {
		return "", &ChannelNotFoundError{Handle: handle}
	}

	uploads := resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return "", &FetchError{Handle: handle, Message: "channel has no uploads playlist"}
	}
	return uploads, nil
}

func (f *Fetcher) playlistVideoIDs(ctx context.Context, handle, playlistID string, limit int) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	pageToken := ""

	for len(ids) < limit {
		call := f.service.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(int64(min(maxPageSize, limit-len(ids)))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, wrapAPIError(handle, "playlistItems.list failed", err)
		}

		for _, item := range resp.Items {
			if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
				continue
			}
			id := item.ContentDetails.VideoId
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}

		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	return ids, nil
}

func (f *Fetcher) videoDetails(ctx context.Context, handle string, ids []string) ([]types.ContentItem, error) {
	resp, err := f.service.Videos.List([]string{"snippet", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError(handle, "videos.list failed", err)
	}

	byID := make(map[string]*youtube.Video, len(resp.Items))
	for _, v := range resp.Items {
		byID[v.Id] = v
	}

	// Keep playlist order; videos.list does not guarantee it
	items := make([]types.ContentItem, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			continue
		}
		items = append(items, toContentItem(v))
	}
	return items, nil
}

func toContentItem(v *youtube.Video) types.ContentItem {
	item := types.ContentItem{
		ID:       v.Id,
		Platform: types.PlatformYouTube,
		URL:      watchURLBase + v.Id,
		IsVideo:  true,
	}
	if v.Snippet != nil {
		item.Title = v.Snippet.Title
		if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			item.PublishedAt = t
		}
	}
	if v.Statistics != nil {
		item.Engagement = int64(v.Statistics.ViewCount)
	}
	return item
}

func isChannelID(handle string) bool {
	return strings.HasPrefix(handle, "UC") && len(handle) == 24
}

// wrapAPIError keeps the HTTP status visible to retry classification.
func wrapAPIError(handle, message string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &FetchError{
			Handle:  handle,
			Message: fmt.Sprintf("%s: %s", message, gerr.Message),
			Cause:   &fetch.StatusError{URL: "https://youtube.googleapis.com", StatusCode: gerr.Code},
		}
	}
	return &FetchError{Handle: handle, Message: message, Cause: err}
}
