package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/tidwall/gjson"
)

const (
	defaultSiteURL     = "https://www.youtube.com"
	playerResponseMark = "ytInitialPlayerResponse"
	maxCachedVideos    = 32
)

// ErrCaptionsDisabled is returned when a video has no caption tracks at all.
var ErrCaptionsDisabled = errors.New("captions are disabled for this video")

// CaptionTrack is one caption language offered by the watch page.
type CaptionTrack struct {
	BaseURL      string
	LanguageCode string
	Name         string
	// Generated marks automatic speech recognition tracks (kind=asr)
	Generated bool
}

// CaptionText is the decoded body of a caption track.
type CaptionText struct {
	Text     string
	Duration float64 // seconds, end of the last cue
}

// Captions reads caption tracks from a video's watch page and downloads their
// timed text. Track lists are memoized per video so successive strategies for
// the same video share one page load.
type Captions struct {
	SiteURL string
	Options *fetch.Options

	mu     sync.Mutex
	tracks map[string][]CaptionTrack
}

// NewCaptions creates a caption reader against youtube.com.
func NewCaptions() *Captions {
	opts := fetch.DefaultOptions()
	opts.Headers = map[string]string{"Accept-Language": "en-US,en;q=0.9"}
	// Skip the EU consent interstitial
	opts.Cookies = []*http.Cookie{{Name: "CONSENT", Value: "YES+1"}}
	return &Captions{SiteURL: defaultSiteURL, Options: opts}
}

// Tracks lists the caption tracks for videoID.
func (c *Captions) Tracks(ctx context.Context, videoID string) ([]CaptionTrack, error) {
	c.mu.Lock()
	if tracks, ok := c.tracks[videoID]; ok {
		c.mu.Unlock()
		return tracks, nil
	}
	c.mu.Unlock()

	res, err := fetch.URL(ctx, c.siteURL()+"/watch?v="+videoID, c.Options)
	if err != nil {
		return nil, &CaptionError{VideoID: videoID, Message: "failed to load watch page", Cause: err}
	}

	player, err := extractPlayerResponse(res.Text())
	if err != nil {
		return nil, &CaptionError{VideoID: videoID, Message: "failed to read player response", Cause: err}
	}

	tracks, err := parseCaptionTracks(player)
	if err != nil {
		return nil, &CaptionError{VideoID: videoID, Message: "no caption tracks", Cause: err}
	}

	c.mu.Lock()
	if c.tracks == nil || len(c.tracks) >= maxCachedVideos {
		c.tracks = make(map[string][]CaptionTrack)
	}
	c.tracks[videoID] = tracks
	c.mu.Unlock()

	return tracks, nil
}

// Download fetches and decodes one caption track.
func (c *Captions) Download(ctx context.Context, videoID string, track CaptionTrack) (CaptionText, error) {
	res, err := fetch.URL(ctx, track.BaseURL, c.Options)
	if err != nil {
		return CaptionText{}, &CaptionError{VideoID: videoID, Message: "failed to download " + track.LanguageCode + " captions", Cause: err}
	}

	text, err := parseTimedText(res.Body)
	if err != nil {
		return CaptionText{}, &CaptionError{VideoID: videoID, Message: "failed to parse " + track.LanguageCode + " captions", Cause: err}
	}
	return text, nil
}

func (c *Captions) siteURL() string {
	if c.SiteURL == "" {
		return defaultSiteURL
	}
	return strings.TrimRight(c.SiteURL, "/")
}

// extractPlayerResponse pulls the ytInitialPlayerResponse object out of the
// watch page HTML.
func extractPlayerResponse(html string) (string, error) {
	idx := strings.Index(html, playerResponseMark)
	if idx < 0 {
		return "", errors.New("player response not found in page")
	}
	rest := html[idx+len(playerResponseMark):]
	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return "", errors.New("player response has no object")
	}

	var raw json.RawMessage
	if err := json.NewDecoder(strings.NewReader(rest[start:])).Decode(&raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func parseCaptionTracks(player string) ([]CaptionTrack, error) {
	if status := gjson.Get(player, "playabilityStatus.status").String(); status != "" && status != "OK" {
		reason := gjson.Get(player, "playabilityStatus.reason").String()
		return nil, errors.New("video not playable: " + strings.TrimSpace(status+" "+reason))
	}

	list := gjson.Get(player, "captions.playerCaptionsTracklistRenderer.captionTracks")
	if !list.Exists() || len(list.Array()) == 0 {
		return nil, ErrCaptionsDisabled
	}

	var tracks []CaptionTrack
	list.ForEach(func(_, t gjson.Result) bool {
		baseURL := t.Get("baseUrl").String()
		if baseURL == "" {
			return true
		}
		name := t.Get("name.simpleText").String()
		if name == "" {
			name = t.Get("name.runs.0.text").String()
		}
		tracks = append(tracks, CaptionTrack{
			BaseURL:      baseURL,
			LanguageCode: t.Get("languageCode").String(),
			Name:         name,
			Generated:    t.Get("kind").String() == "asr",
		})
		return true
	})
	if len(tracks) == 0 {
		return nil, ErrCaptionsDisabled
	}
	return tracks, nil
}

type timedText struct {
	Cues []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

// parseTimedText decodes the legacy timedtext XML format. Cue text is itself
// HTML-escaped, so it is decoded a second time.
func parseTimedText(body []byte) (CaptionText, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return CaptionText{}, err
	}

	var parts []string
	var end float64
	for _, cue := range doc.Cues {
		line := fetch.TextFromFragment(cue.Text)
		if line != "" {
			parts = append(parts, line)
		}
		start, _ := strconv.ParseFloat(cue.Start, 64)
		dur, _ := strconv.ParseFloat(cue.Dur, 64)
		end = max(end, start+dur)
	}
	return CaptionText{Text: strings.Join(parts, " "), Duration: end}, nil
}

// pickTrack returns the first track matching languages in order, comparing
// exact codes first and then base languages ("en-US" matches "en").
func pickTrack(tracks []CaptionTrack, languages []string, generated bool) (CaptionTrack, bool) {
	var candidates []CaptionTrack
	for _, t := range tracks {
		if t.Generated == generated {
			candidates = append(candidates, t)
		}
	}

	for _, lang := range languages {
		for _, t := range candidates {
			if strings.EqualFold(t.LanguageCode, lang) {
				return t, true
			}
		}
	}
	for _, lang := range languages {
		base := baseLanguage(lang)
		for _, t := range candidates {
			if baseLanguage(t.LanguageCode) == base {
				return t, true
			}
		}
	}
	return CaptionTrack{}, false
}

func baseLanguage(code string) string {
	code = strings.ToLower(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return code[:i]
	}
	return code
}
