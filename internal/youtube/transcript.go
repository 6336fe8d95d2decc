package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/transcript"
	"github.com/jonathan/creator-persona/internal/types"
	"go.uber.org/zap"
)

// Strategy names, recorded in transcript metadata.
const (
	StrategyManual = "manual_captions"
	StrategyAuto   = "auto_captions"
	StrategyPanel  = "transcript_panel"
)

// ManualCaptions uses creator-uploaded caption tracks, preferring Languages in
// order and otherwise taking any uploaded track.
type ManualCaptions struct {
	Captions  *Captions
	Languages []string
}

func (s *ManualCaptions) Name() string { return StrategyManual }

func (s *ManualCaptions) Fetch(ctx context.Context, videoID string) transcript.Result {
	tracks, err := s.Captions.Tracks(ctx, videoID)
	if err != nil {
		return transcript.Failed(err)
	}

	track, ok := pickTrack(tracks, s.Languages, false)
	if !ok {
		for _, t := range tracks {
			if !t.Generated {
				track, ok = t, true
				break
			}
		}
	}
	if !ok {
		return transcript.Failed(&CaptionError{VideoID: videoID, Message: "no uploaded caption track"})
	}
	return download(ctx, s.Captions, videoID, track)
}

// AutoCaptions uses automatic speech recognition tracks, trying each of
// Languages in order. It never falls outside the list.
type AutoCaptions struct {
	Captions  *Captions
	Languages []string
}

func (s *AutoCaptions) Name() string { return StrategyAuto }

func (s *AutoCaptions) Fetch(ctx context.Context, videoID string) transcript.Result {
	tracks, err := s.Captions.Tracks(ctx, videoID)
	if err != nil {
		return transcript.Failed(err)
	}

	track, ok := pickTrack(tracks, s.Languages, true)
	if !ok {
		return transcript.Failed(&CaptionError{
			VideoID: videoID,
			Message: fmt.Sprintf("no generated captions in %s", strings.Join(s.Languages, ", ")),
		})
	}
	return download(ctx, s.Captions, videoID, track)
}

func download(ctx context.Context, c *Captions, videoID string, track CaptionTrack) transcript.Result {
	text, err := c.Download(ctx, videoID, track)
	if err != nil {
		return transcript.Failed(err)
	}
	if strings.TrimSpace(text.Text) == "" {
		return transcript.Failed(transcript.ErrNoTranscript)
	}
	res := transcript.Found(text.Text)
	if text.Duration > 0 {
		d := text.Duration
		res.Duration = &d
	}
	return res
}

// Selectors for the transcript panel on a rendered watch page.
var (
	panelClicks = []string{
		"tp-yt-paper-button#expand",
		`button[aria-label="Show transcript"]`,
		`ytd-video-description-transcript-section-renderer button`,
	}
	panelSegment = "ytd-transcript-segment-renderer"
)

// TranscriptPanel renders the watch page in a headless browser, opens the
// transcript panel and scrapes its segments.
type TranscriptPanel struct {
	Renderer fetch.Renderer
	SiteURL  string
	Timeout  time.Duration
	Logger   *zap.Logger
}

func (s *TranscriptPanel) Name() string { return StrategyPanel }

func (s *TranscriptPanel) Fetch(ctx context.Context, videoID string) transcript.Result {
	site := s.SiteURL
	if site == "" {
		site = defaultSiteURL
	}

	html, err := s.Renderer.Render(ctx, strings.TrimRight(site, "/")+"/watch?v="+videoID, fetch.BrowserOptions{
		Timeout: s.Timeout,
		Clicks:  panelClicks,
		WaitFor: panelSegment,
		Settle:  time.Second,
		Logger:  s.Logger,
	})
	if err != nil {
		return transcript.Failed(err)
	}

	text, err := ParsePanelSegments(html)
	if err != nil {
		return transcript.Failed(err)
	}
	return transcript.Found(text)
}

// ParsePanelSegments joins the text of every transcript segment in html.
func ParsePanelSegments(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse rendered page: %w", err)
	}

	var parts []string
	doc.Find(panelSegment).Each(func(_ int, seg *goquery.Selection) {
		text := seg.Find(".segment-text").Text()
		if text == "" {
			text = seg.Find("yt-formatted-string").Last().Text()
		}
		if text = strings.Join(strings.Fields(text), " "); text != "" {
			parts = append(parts, text)
		}
	})

	if len(parts) == 0 {
		return "", errors.New("transcript panel has no segments")
	}
	return strings.Join(parts, " "), nil
}

// Transcriber produces TranscriptRecords for YouTube videos through the
// caption and panel fallback chain.
type Transcriber struct {
	chain *transcript.Chain
}

// NewTranscriber builds the fallback chain manual → auto → panel. The panel
// strategy is left out when renderer is nil.
func NewTranscriber(captions *Captions, renderer fetch.Renderer, languages []string, logger *zap.Logger) *Transcriber {
	strategies := []transcript.Strategy{
		&ManualCaptions{Captions: captions, Languages: languages},
		&AutoCaptions{Captions: captions, Languages: languages},
	}
	if renderer != nil {
		strategies = append(strategies, &TranscriptPanel{Renderer: renderer, Logger: logger})
	}
	chain := transcript.NewChain(logger, strategies...)
	if logger != nil {
		logger.Debug("youtube transcript strategies", zap.Strings("order", chain.Strategies()))
	}
	return &Transcriber{chain: chain}
}

// Transcribe returns the transcript of one ranked video.
func (t *Transcriber) Transcribe(ctx context.Context, item types.RankedItem) (types.TranscriptRecord, error) {
	res, strategy, err := t.chain.Run(ctx, item.ID)
	if err != nil {
		return types.TranscriptRecord{SourceItemID: item.ID}, err
	}

	return types.TranscriptRecord{
		SourceItemID: item.ID,
		Text:         res.Text,
		Confidence:   res.Confidence,
		Duration:     res.Duration,
		Metadata: map[string]any{
			"platform":        string(types.PlatformYouTube),
			"url":             item.URL,
			"title":           item.Title,
			"published_at":    item.PublishedAt.Format(time.RFC3339),
			"views":           item.Engagement,
			"relevance_score": item.RelevanceScore,
			"strategy":        strategy,
		},
	}, nil
}
