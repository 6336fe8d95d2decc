// Package instagram lists a profile's posts and turns video posts into
// transcripts.
package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/retry"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	defaultSiteURL = "https://www.instagram.com"
	// webAppID is the public app id the Instagram web client sends.
	webAppID     = "936619743392459"
	feedPageSize = 33
)

// Fetcher lists a profile's posts through the Instagram web API.
type Fetcher struct {
	SiteURL   string
	SessionID string
	Options   *fetch.Options
	Policy    retry.Policy
	Logger    *zap.Logger
}

// NewFetcher creates a fetcher. sessionID is the "sessionid" cookie of a
// logged-in browser; without it only the first page of posts is reachable.
func NewFetcher(sessionID string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		SiteURL:   defaultSiteURL,
		SessionID: sessionID,
		Options:   fetch.DefaultOptions(),
		Policy:    retry.DefaultPolicy(),
		Logger:    logger,
	}
}

// FetchProfile returns up to limit posts of username, newest first, with like
// counts as engagement.
func (f *Fetcher) FetchProfile(ctx context.Context, username string, limit int) ([]types.ContentItem, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, &ProfileNotFoundError{Username: username}
	}
	if limit <= 0 {
		return nil, nil
	}

	profile, err := f.get(ctx, username, f.site()+"/api/v1/users/web_profile_info/?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}

	user := gjson.Get(profile, "data.user")
	if !user.Exists() || user.Type == gjson.Null {
		return nil, &ProfileNotFoundError{Username: username}
	}
	if user.Get("is_private").Bool() && !user.Get("followed_by_viewer").Bool() {
		return nil, &ProfileNotFoundError{Username: username}
	}

	seen := make(map[string]bool)
	var items []types.ContentItem
	add := func(item types.ContentItem) {
		if item.ID == "" || seen[item.ID] || len(items) >= limit {
			return
		}
		seen[item.ID] = true
		items = append(items, item)
	}

	timeline := user.Get("edge_owner_to_timeline_media")
	for _, edge := range timeline.Get("edges").Array() {
		add(fromTimelineNode(edge.Get("node")))
	}

	hasMore := timeline.Get("page_info.has_next_page").Bool()
	userID := user.Get("id").String()
	if len(items) < limit && hasMore {
		if f.SessionID == "" {
			f.Logger.Warn("no Instagram session configured, stopping at first page",
				zap.String("username", username),
				zap.Int("items", len(items)))
		} else {
			if err := f.pageFeed(ctx, username, userID, limit, add, func() int { return len(items) }); err != nil {
				if len(items) == 0 {
					return nil, err
				}
				f.Logger.Warn("instagram feed paging stopped early",
					zap.String("username", username),
					zap.Int("items", len(items)),
					zap.Error(err))
			}
		}
	}

	f.Logger.Info("fetched instagram posts",
		zap.String("username", username),
		zap.Int("items", len(items)))
	return items, nil
}

func (f *Fetcher) pageFeed(ctx context.Context, username, userID string, limit int, add func(types.ContentItem), count func() int) error {
	maxID := ""
	for count() < limit {
		q := url.Values{}
		q.Set("count", fmt.Sprint(feedPageSize))
		if maxID != "" {
			q.Set("max_id", maxID)
		}

		body, err := f.get(ctx, username, f.site()+"/api/v1/feed/user/"+url.PathEscape(userID)+"/?"+q.Encode())
		if err != nil {
			return err
		}

		page := gjson.Parse(body)
		before := count()
		for _, item := range page.Get("items").Array() {
			add(fromFeedItem(item))
		}

		next := page.Get("next_max_id").String()
		if !page.Get("more_available").Bool() || next == "" || next == maxID || count() == before {
			return nil
		}
		maxID = next
	}
	return nil
}

// get performs one API request with retries for rate limits, server errors
// and session hiccups.
func (f *Fetcher) get(ctx context.Context, username, endpoint string) (string, error) {
	var body string
	err := retry.Do(ctx, f.Policy, func(ctx context.Context) error {
		b, err := f.getOnce(ctx, username, endpoint)
		body = b
		return err
	}, func(err error, wait time.Duration) {
		f.Logger.Warn("instagram request failed, retrying",
			zap.String("username", username),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	return body, err
}

func (f *Fetcher) getOnce(ctx context.Context, username, endpoint string) (string, error) {
	opts := *f.options()
	headers := map[string]string{
		"X-IG-App-ID":      webAppID,
		"X-Requested-With": "XMLHttpRequest",
		"Accept":           "application/json",
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	opts.Headers = headers
	if f.SessionID != "" {
		opts.Cookies = append(append([]*http.Cookie(nil), opts.Cookies...), &http.Cookie{Name: "sessionid", Value: f.SessionID})
	}

	res, err := fetch.URL(ctx, endpoint, &opts)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.StatusCode {
			case http.StatusNotFound:
				return "", &ProfileNotFoundError{Username: username}
			case http.StatusUnauthorized, http.StatusForbidden:
				return "", &SessionError{Username: username, Message: "request rejected", Cause: err}
			}
		}
		return "", err
	}

	body := res.Text()
	if !gjson.Valid(body) {
		// Logged-out clients get redirected to the HTML login page
		return "", &SessionError{Username: username, Message: "login required"}
	}
	if gjson.Get(body, "require_login").Bool() || gjson.Get(body, "message").String() == "login_required" {
		return "", &SessionError{Username: username, Message: "login required"}
	}
	return body, nil
}

func (f *Fetcher) options() *fetch.Options {
	if f.Options == nil {
		return fetch.DefaultOptions()
	}
	return f.Options
}

func (f *Fetcher) site() string {
	if f.SiteURL == "" {
		return defaultSiteURL
	}
	return strings.TrimRight(f.SiteURL, "/")
}

func fromTimelineNode(node gjson.Result) types.ContentItem {
	likes := node.Get("edge_liked_by.count").Int()
	if likes == 0 {
		likes = node.Get("edge_media_preview_like.count").Int()
	}
	item := types.ContentItem{
		ID:          node.Get("id").String(),
		Platform:    types.PlatformInstagram,
		Title:       node.Get("edge_media_to_caption.edges.0.node.text").String(),
		PublishedAt: time.Unix(node.Get("taken_at_timestamp").Int(), 0).UTC(),
		URL:         postURL(node.Get("shortcode").String()),
		Engagement:  likes,
		IsVideo:     node.Get("is_video").Bool(),
	}
	if item.IsVideo {
		item.MediaURL = node.Get("video_url").String()
	}
	return item
}

func fromFeedItem(node gjson.Result) types.ContentItem {
	id := node.Get("pk").String()
	if id == "" {
		id, _, _ = strings.Cut(node.Get("id").String(), "_")
	}
	item := types.ContentItem{
		ID:          id,
		Platform:    types.PlatformInstagram,
		Title:       node.Get("caption.text").String(),
		PublishedAt: time.Unix(node.Get("taken_at").Int(), 0).UTC(),
		URL:         postURL(node.Get("code").String()),
		Engagement:  node.Get("like_count").Int(),
		IsVideo:     node.Get("media_type").Int() == 2,
	}
	if item.IsVideo {
		item.MediaURL = node.Get("video_versions.0.url").String()
	}
	return item
}

func postURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return defaultSiteURL + "/p/" + shortcode + "/"
}
