package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/transcript"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timedTextEN = `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
	`<text start="0.5" dur="2.0">I grew up &amp;amp; moved</text>` +
	`<text start="2.5" dur="3.5">to the city&amp;#39;s edge</text></transcript>`

type captionServer struct {
	server     *httptest.Server
	watchCalls atomic.Int32
}

// newCaptionServer serves a watch page whose player response lists the given
// tracks as "lang:kind" pairs, e.g. "en:asr" or "es:".
func newCaptionServer(t *testing.T, tracks ...string) *captionServer {
	t.Helper()
	cs := &captionServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		cs.watchCalls.Add(1)
		list := ""
		for i, tr := range tracks {
			lang, kind, _ := strings.Cut(tr, ":")
			if i > 0 {
				list += ","
			}
			list += fmt.Sprintf(`{"baseUrl":"%s/timedtext?v=%s&lang=%s&kind=%s","languageCode":"%s","kind":"%s","name":{"simpleText":"%s"}}`,
				cs.server.URL, r.URL.Query().Get("v"), lang, kind, lang, kind, lang)
		}
		_, _ = fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[%s]}}};var meta = {};</script></html>`, list)
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, timedTextEN)
	})
	cs.server = httptest.NewServer(mux)
	t.Cleanup(cs.server.Close)
	return cs
}

func (cs *captionServer) captions() *Captions {
	c := NewCaptions()
	c.SiteURL = cs.server.URL
	return c
}

type fakeRenderer struct {
	html  string
	err   error
	calls int
}

func (r *fakeRenderer) Render(context.Context, string, fetch.BrowserOptions) (string, error) {
	r.calls++
	return r.html, r.err
}

func TestParseTimedText(t *testing.T) {
	text, err := parseTimedText([]byte(timedTextEN))
	require.NoError(t, err)
	assert.Equal(t, "I grew up & moved to the city's edge", text.Text)
	assert.InDelta(t, 6.0, text.Duration, 0.001)
}

func TestExtractPlayerResponse(t *testing.T) {
	player, err := extractPlayerResponse(`x ytInitialPlayerResponse = {"a":{"b":"};"}};var y = 1;`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":"};"}}`, player)

	_, err = extractPlayerResponse("<html></html>")
	assert.Error(t, err)
}

func TestParseCaptionTracks(t *testing.T) {
	_, err := parseCaptionTracks(`{"playabilityStatus":{"status":"OK"}}`)
	assert.ErrorIs(t, err, ErrCaptionsDisabled)

	_, err = parseCaptionTracks(`{"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"Private video"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Private video")
}

func TestPickTrack(t *testing.T) {
	tracks := []CaptionTrack{
		{LanguageCode: "de", Generated: false},
		{LanguageCode: "en-GB", Generated: false},
		{LanguageCode: "en", Generated: true},
	}

	got, ok := pickTrack(tracks, []string{"en-US", "de"}, false)
	require.True(t, ok)
	assert.Equal(t, "de", got.LanguageCode) // exact match beats base-language match

	got, ok = pickTrack(tracks, []string{"en-US"}, false)
	require.True(t, ok)
	assert.Equal(t, "en-GB", got.LanguageCode)

	got, ok = pickTrack(tracks, []string{"en"}, true)
	require.True(t, ok)
	assert.True(t, got.Generated)

	_, ok = pickTrack(tracks, []string{"fr"}, true)
	assert.False(t, ok)
}

func TestManualCaptions_FallsBackToAnyUploadedTrack(t *testing.T) {
	cs := newCaptionServer(t, "es:", "en:asr")
	s := &ManualCaptions{Captions: cs.captions(), Languages: []string{"en"}}

	res := s.Fetch(context.Background(), "vid1")
	require.True(t, res.OK(), "%v", res.Err)
	assert.Contains(t, res.Text, "grew up")
	require.NotNil(t, res.Duration)
}

func TestAutoCaptions_RespectsLanguageList(t *testing.T) {
	cs := newCaptionServer(t, "fr:asr")
	s := &AutoCaptions{Captions: cs.captions(), Languages: []string{"en", "en-US"}}

	res := s.Fetch(context.Background(), "vid1")
	assert.False(t, res.OK())
	assert.Contains(t, res.Err.Error(), "no generated captions in en, en-US")
}

// Manual captions fail, auto captions succeed, and the browser scrape is never
// started. The watch page is loaded once for both caption strategies.
func TestTranscriber_ChainOrder(t *testing.T) {
	cs := newCaptionServer(t, "en:asr")
	renderer := &fakeRenderer{html: "<ytd-transcript-segment-renderer><div class=\"segment-text\">panel</div></ytd-transcript-segment-renderer>"}

	tr := NewTranscriber(cs.captions(), renderer, []string{"en"}, nil)
	item := types.RankedItem{
		ContentItem:    types.ContentItem{ID: "vid1", URL: "https://www.youtube.com/watch?v=vid1", Title: "My story", Engagement: 10},
		RelevanceScore: 90,
	}

	rec, err := tr.Transcribe(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "I grew up & moved to the city's edge", rec.Text)
	assert.Equal(t, "vid1", rec.SourceItemID)
	assert.Equal(t, StrategyAuto, rec.Metadata["strategy"])
	assert.Equal(t, "My story", rec.Metadata["title"])
	assert.Equal(t, 0, renderer.calls)
	assert.Equal(t, int32(1), cs.watchCalls.Load())
}

func TestTranscriber_FallsBackToPanel(t *testing.T) {
	cs := newCaptionServer(t) // no tracks at all
	renderer := &fakeRenderer{html: `<html><body>
		<ytd-transcript-segment-renderer><div class="segment-timestamp">0:01</div><yt-formatted-string class="segment-text">Hello   there</yt-formatted-string></ytd-transcript-segment-renderer>
		<ytd-transcript-segment-renderer><yt-formatted-string class="segment-text">friends</yt-formatted-string></ytd-transcript-segment-renderer>
	</body></html>`}

	tr := NewTranscriber(cs.captions(), renderer, []string{"en"}, nil)
	rec, err := tr.Transcribe(context.Background(), types.RankedItem{ContentItem: types.ContentItem{ID: "vid2"}})

	require.NoError(t, err)
	assert.Equal(t, "Hello there friends", rec.Text)
	assert.Equal(t, StrategyPanel, rec.Metadata["strategy"])
	assert.Equal(t, 1, renderer.calls)
}

func TestTranscriber_Exhausted(t *testing.T) {
	cs := newCaptionServer(t)

	tr := NewTranscriber(cs.captions(), nil, []string{"en"}, nil)
	rec, err := tr.Transcribe(context.Background(), types.RankedItem{ContentItem: types.ContentItem{ID: "vid3"}})

	var exhausted *transcript.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Attempts, 2)
	assert.ErrorIs(t, err, ErrCaptionsDisabled)
	assert.Equal(t, "vid3", rec.SourceItemID)
	assert.Empty(t, rec.Text)
}

func TestParsePanelSegments_Empty(t *testing.T) {
	_, err := ParsePanelSegments("<html><body>nothing</body></html>")
	assert.Error(t, err)
}
