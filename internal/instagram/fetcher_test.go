package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/creator-persona/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func timelineNode(id string, video bool, likes int) string {
	videoURL := ""
	if video {
		videoURL = fmt.Sprintf(`,"video_url":"https://cdn.example.com/%s.mp4?sig=1"`, id)
	}
	return fmt.Sprintf(`{"node":{"id":"%s","shortcode":"SC%s","is_video":%t,"taken_at_timestamp":1700000000,
		"edge_media_to_caption":{"edges":[{"node":{"text":"caption %s"}}]},
		"edge_liked_by":{"count":%d}%s}}`, id, id, video, id, likes, videoURL)
}

func profileBody(hasNext bool, nodes ...string) string {
	return fmt.Sprintf(`{"status":"ok","data":{"user":{"id":"42","is_private":false,
		"edge_owner_to_timeline_media":{"count":99,"page_info":{"has_next_page":%t,"end_cursor":"c1"},
		"edges":[%s]}}}}`, hasNext, strings.Join(nodes, ","))
}

func newTestFetcher(t *testing.T, session string, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := NewFetcher(session, nil)
	f.SiteURL = server.URL
	f.Policy = fastPolicy()
	return f
}

func TestFetchProfile_FirstPage(t *testing.T) {
	f := newTestFetcher(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/web_profile_info/", r.URL.Path)
		assert.Equal(t, "jane.doe", r.URL.Query().Get("username"))
		assert.Equal(t, webAppID, r.Header.Get("X-IG-App-ID"))
		_, _ = w.Write([]byte(profileBody(true, timelineNode("1", true, 50), timelineNode("2", false, 70))))
	})

	items, err := f.FetchProfile(context.Background(), "@jane.doe", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "1", items[0].ID)
	assert.True(t, items[0].IsVideo)
	assert.Equal(t, "https://cdn.example.com/1.mp4?sig=1", items[0].MediaURL)
	assert.Equal(t, "caption 1", items[0].Title)
	assert.Equal(t, int64(50), items[0].Engagement)
	assert.Equal(t, "https://www.instagram.com/p/SC1/", items[0].URL)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), items[0].PublishedAt)

	assert.False(t, items[1].IsVideo)
	assert.Empty(t, items[1].MediaURL)
}

func TestFetchProfile_PagesFeedWithSession(t *testing.T) {
	f := newTestFetcher(t, "sess", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sessionid"); assert.NoError(t, err) {
			assert.Equal(t, "sess", c.Value)
		}

		switch {
		case r.URL.Path == "/api/v1/users/web_profile_info/":
			_, _ = w.Write([]byte(profileBody(true, timelineNode("1", false, 5))))
		case r.URL.Path == "/api/v1/feed/user/42/" && r.URL.Query().Get("max_id") == "":
			_, _ = w.Write([]byte(`{"items":[
				{"pk":"1","code":"SC1","taken_at":1700000000,"media_type":1,"like_count":5,"caption":{"text":"dup"}},
				{"pk":"3","code":"SC3","taken_at":1700000100,"media_type":2,"like_count":9,"caption":{"text":"reel"},
				 "video_versions":[{"url":"https://cdn.example.com/3.mp4"}]}],
				"more_available":true,"next_max_id":"m2"}`))
		case r.URL.Path == "/api/v1/feed/user/42/" && r.URL.Query().Get("max_id") == "m2":
			_, _ = w.Write([]byte(`{"items":[
				{"id":"4_42","code":"SC4","taken_at":1700000200,"media_type":1,"like_count":1,"caption":null},
				{"pk":"5","code":"SC5","media_type":1}],
				"more_available":false}`))
		default:
			t.Errorf("unexpected request %s", r.URL.String())
		}
	})

	items, err := f.FetchProfile(context.Background(), "jane.doe", 3)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "3", items[1].ID)
	assert.True(t, items[1].IsVideo)
	assert.Equal(t, "https://cdn.example.com/3.mp4", items[1].MediaURL)
	assert.Equal(t, "4", items[2].ID)
}

func TestFetchProfile_LoginPageIsSessionError(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, "", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Log in to Instagram</body></html>"))
	})

	_, err := f.FetchProfile(context.Background(), "jane.doe", 10)

	var sessionErr *SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.True(t, retry.IsTransient(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchProfile_RateLimitRecovers(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, "", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(profileBody(false, timelineNode("1", false, 5))))
	})

	items, err := f.FetchProfile(context.Background(), "jane.doe", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchProfile_NotFound(t *testing.T) {
	var calls atomic.Int32
	f := newTestFetcher(t, "", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := f.FetchProfile(context.Background(), "ghost", 10)

	var notFound *ProfileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchProfile_PrivateProfile(t *testing.T) {
	f := newTestFetcher(t, "", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"user":{"id":"1","is_private":true,"followed_by_viewer":false}}}`))
	})

	_, err := f.FetchProfile(context.Background(), "hidden", 10)
	var notFound *ProfileNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
