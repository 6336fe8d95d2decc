package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/retry"
	"go.uber.org/zap"
)

// DefaultDownloadTimeout bounds each download attempt.
const DefaultDownloadTimeout = 30 * time.Second

// Downloader stages remote media in a temporary file.
type Downloader struct {
	Client  *http.Client
	Timeout time.Duration
	Policy  retry.Policy
	TempDir string
	Logger  *zap.Logger
}

// NewDownloader creates a downloader with a 30 second per-attempt timeout and
// three attempts with exponential backoff.
func NewDownloader(logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		Client:  &http.Client{},
		Timeout: DefaultDownloadTimeout,
		Policy:  retry.DefaultPolicy(),
		Logger:  logger,
	}
}

// Download saves mediaURL to a new temporary file and returns its path. The
// caller owns the file on success; on failure nothing is left on disk.
// After a server error the next attempt uses the URL without its query
// string.
func (d *Downloader) Download(ctx context.Context, mediaURL string) (string, error) {
	if mediaURL == "" {
		return "", &DownloadError{URL: mediaURL, Message: "empty media URL"}
	}

	current := mediaURL
	var path string
	err := retry.Do(ctx, d.Policy, func(ctx context.Context) error {
		p, err := d.downloadOnce(ctx, current)
		if err != nil {
			var statusErr *fetch.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode >= 500 {
				if stripped := fetch.StripQuery(mediaURL); stripped != current {
					d.Logger.Debug("retrying download without query", zap.String("url", stripped))
					current = stripped
				}
			}
			return err
		}
		path = p
		return nil
	}, func(err error, wait time.Duration) {
		d.Logger.Warn("download failed, retrying",
			zap.String("url", current),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (d *Downloader) downloadOnce(ctx context.Context, mediaURL string) (path string, err error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", &DownloadError{URL: mediaURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", fetch.DefaultUserAgent)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &DownloadError{URL: mediaURL, Message: "request failed", Cause: err, Transient: true}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &DownloadError{
			URL:     mediaURL,
			Message: "unexpected status",
			Cause:   &fetch.StatusError{URL: mediaURL, StatusCode: resp.StatusCode},
		}
	}

	f, err := os.CreateTemp(d.TempDir, "persona-media-*")
	if err != nil {
		return "", &DownloadError{URL: mediaURL, Message: "failed to create temp file", Cause: err}
	}
	defer func() {
		_ = f.Close()
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if _, err = io.Copy(f, resp.Body); err != nil {
		return "", &DownloadError{URL: mediaURL, Message: "failed to write media", Cause: err, Transient: true}
	}
	if err = f.Sync(); err != nil {
		return "", &DownloadError{URL: mediaURL, Message: "failed to flush media", Cause: err}
	}

	mt, err := mimetype.DetectFile(f.Name())
	if err != nil {
		return "", &DownloadError{URL: mediaURL, Message: "failed to sniff media type", Cause: err}
	}
	if !isMedia(mt) {
		err = fmt.Errorf("got %s", mt.String())
		return "", &DownloadError{URL: mediaURL, Message: "not a video or audio file", Cause: err}
	}

	d.Logger.Debug("media downloaded", zap.String("url", mediaURL), zap.String("mime", mt.String()), zap.String("path", f.Name()))
	return f.Name(), nil
}

func isMedia(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") || strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}
