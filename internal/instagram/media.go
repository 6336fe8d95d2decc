package instagram

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jonathan/creator-persona/internal/transcribe"
	"github.com/jonathan/creator-persona/internal/transcript"
	"github.com/jonathan/creator-persona/internal/types"
	"go.uber.org/zap"
)

// Strategy names, recorded in transcript metadata.
const (
	StrategyDirectURL = "direct_url"
	StrategyDownload  = "download_audio"
	StrategyCaption   = "caption"
)

// SpeechToText is the transcription service used for post audio.
type SpeechToText interface {
	TranscribeAudio(ctx context.Context, audio io.Reader, contentType string) (*transcribe.Transcription, error)
	TranscribeURL(ctx context.Context, mediaURL string) (*transcribe.Transcription, error)
}

// MediaDownloader stages remote media locally.
type MediaDownloader interface {
	Download(ctx context.Context, mediaURL string) (string, error)
}

// MediaTranscriber turns Instagram posts into transcript records. Video posts
// go through speech-to-text, first by URL reference and then by downloading
// and transcoding the video locally. Image posts use their caption.
type MediaTranscriber struct {
	stt        SpeechToText
	downloader MediaDownloader
	transcoder AudioExtractor
	logger     *zap.Logger
}

// NewMediaTranscriber wires the transcription chain.
func NewMediaTranscriber(stt SpeechToText, downloader MediaDownloader, transcoder AudioExtractor, logger *zap.Logger) *MediaTranscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaTranscriber{stt: stt, downloader: downloader, transcoder: transcoder, logger: logger}
}

// Transcribe returns the transcript record for one ranked post.
func (m *MediaTranscriber) Transcribe(ctx context.Context, item types.RankedItem) (types.TranscriptRecord, error) {
	rec := types.TranscriptRecord{
		SourceItemID: item.ID,
		Metadata: map[string]any{
			"platform":        string(types.PlatformInstagram),
			"url":             item.URL,
			"caption":         item.Title,
			"published_at":    item.PublishedAt.Format(time.RFC3339),
			"likes":           item.Engagement,
			"relevance_score": item.RelevanceScore,
			"is_video":        item.IsVideo,
		},
	}

	if !item.IsVideo || item.MediaURL == "" {
		caption := strings.TrimSpace(item.Title)
		if caption == "" {
			return rec, transcript.ErrNoTranscript
		}
		rec.Text = caption
		rec.Metadata["strategy"] = StrategyCaption
		return rec, nil
	}

	chain := transcript.NewChain(m.logger, m.directURL(item.MediaURL), m.downloadAudio(item.MediaURL))
	res, strategy, err := chain.Run(ctx, item.ID)
	if err != nil {
		return rec, err
	}

	rec.Text = res.Text
	rec.Confidence = res.Confidence
	rec.Duration = res.Duration
	rec.Metadata["strategy"] = strategy
	return rec, nil
}

func (m *MediaTranscriber) directURL(mediaURL string) transcript.Strategy {
	return transcript.StrategyFunc{
		Label: StrategyDirectURL,
		Fn: func(ctx context.Context, _ string) transcript.Result {
			if m.stt == nil {
				return transcript.Failed(errors.New("no speech-to-text service configured"))
			}
			t, err := m.stt.TranscribeURL(ctx, mediaURL)
			if err != nil {
				return transcript.Failed(err)
			}
			return toResult(t)
		},
	}
}

// downloadAudio stages the video and its audio track; both files are removed
// before the strategy returns.
func (m *MediaTranscriber) downloadAudio(mediaURL string) transcript.Strategy {
	return transcript.StrategyFunc{
		Label: StrategyDownload,
		Fn: func(ctx context.Context, _ string) transcript.Result {
			if m.stt == nil || m.downloader == nil || m.transcoder == nil {
				return transcript.Failed(errors.New("local transcription is not configured"))
			}

			videoPath, err := m.downloader.Download(ctx, mediaURL)
			if err != nil {
				return transcript.Failed(err)
			}
			defer removeStaged(m.logger, videoPath)

			audioPath, err := m.transcoder.ToAudio(ctx, videoPath)
			if err != nil {
				return transcript.Failed(err)
			}
			defer removeStaged(m.logger, audioPath)

			f, err := os.Open(audioPath)
			if err != nil {
				return transcript.Failed(err)
			}
			defer func() { _ = f.Close() }()

			t, err := m.stt.TranscribeAudio(ctx, f, "audio/wav")
			if err != nil {
				return transcript.Failed(err)
			}
			return toResult(t)
		},
	}
}

func toResult(t *transcribe.Transcription) transcript.Result {
	if t == nil {
		return transcript.Failed(transcript.ErrNoTranscript)
	}
	res := transcript.Found(t.Transcript)
	confidence, duration := t.Confidence, t.Duration
	res.Confidence = &confidence
	if duration > 0 {
		res.Duration = &duration
	}
	return res
}

func removeStaged(logger *zap.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove staged media", zap.String("path", path), zap.Error(err))
	}
}
