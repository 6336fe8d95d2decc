package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestFetcher(t *testing.T, handler http.Handler) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f, err := NewFetcher(context.Background(), "", nil,
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return f
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func channelAPI(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "@janedoe", r.URL.Query().Get("forHandle"))
		writeJSON(w, `{"items":[{"id":"UCabc","contentDetails":{"relatedPlaylists":{"uploads":"UUabc"}}}]}`)
	})
	mux.HandleFunc("/youtube/v3/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UUabc", r.URL.Query().Get("playlistId"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, `{"nextPageToken":"p2","items":[
				{"contentDetails":{"videoId":"v1"}},
				{"contentDetails":{"videoId":"v2"}}]}`)
			return
		}
		writeJSON(w, `{"items":[
			{"contentDetails":{"videoId":"v2"}},
			{"contentDetails":{"videoId":"v3"}},
			{"contentDetails":{"videoId":"v4"}}]}`)
	})
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, _ *http.Request) {
		// Deliberately out of playlist order
		writeJSON(w, `{"items":[
			{"id":"v3","snippet":{"title":"Third","publishedAt":"2024-03-01T10:00:00Z"},"statistics":{"viewCount":"30"}},
			{"id":"v1","snippet":{"title":"First","publishedAt":"2024-01-01T10:00:00Z"},"statistics":{"viewCount":"1000"}},
			{"id":"v2","snippet":{"title":"Second","publishedAt":"2024-02-01T10:00:00Z"},"statistics":{"viewCount":"200"}}]}`)
	})
	return mux
}

func TestFetchChannel(t *testing.T) {
	f := newTestFetcher(t, channelAPI(t))

	items, err := f.FetchChannel(context.Background(), "@janedoe", 3)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, []string{"v1", "v2", "v3"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "First", items[0].Title)
	assert.Equal(t, int64(1000), items[0].Engagement)
	assert.Equal(t, "https://www.youtube.com/watch?v=v1", items[0].URL)
	assert.True(t, items[0].IsVideo)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), items[0].PublishedAt.UTC())
}

func TestFetchChannel_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/channels", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, `{"items":[]}`)
	})
	f := newTestFetcher(t, mux)

	_, err := f.FetchChannel(context.Background(), "@nobody", 10)
	var notFound *ChannelNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.False(t, retry.IsTransient(err))
}

func TestFetchChannel_ServerErrorIsTransient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/channels", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"backend unavailable"}}`))
	})
	f := newTestFetcher(t, mux)

	_, err := f.FetchChannel(context.Background(), "UC1234567890123456789012", 10)
	require.Error(t, err)

	var statusErr *fetch.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, retry.IsTransient(err))
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestFetchChannel_EmptyHandle(t *testing.T) {
	f := newTestFetcher(t, http.NewServeMux())

	_, err := f.FetchChannel(context.Background(), " ", 10)
	var fetchErr *FetchError
	assert.ErrorAs(t, err, &fetchErr)
}
