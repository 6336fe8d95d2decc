// Package transcribe sends audio to the Deepgram speech-to-text REST API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the Deepgram API root.
	DefaultBaseURL = "https://api.deepgram.com"
	// DefaultModel is the Deepgram model used for creator videos.
	DefaultModel = "nova-2"
	// DefaultTimeout covers upload plus transcription of a short video.
	DefaultTimeout = 120 * time.Second
)

// Transcription is the speech-to-text result for one media file.
type Transcription struct {
	Transcript string
	Confidence float64
	Duration   float64 // seconds
	Language   string
}

// Error represents a failed transcription request.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transcription error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("transcription error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Client calls the Deepgram /v1/listen endpoint.
type Client struct {
	APIKey     string
	BaseURL    string
	Model      string
	Language   string // empty enables language detection
	HTTPClient *http.Client
}

// NewClient creates a Deepgram client with default settings.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, &Error{Message: "Deepgram API key is required"}
	}
	return &Client{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		Model:      DefaultModel,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// TranscribeAudio uploads raw audio. contentType defaults to audio/wav.
func (c *Client) TranscribeAudio(ctx context.Context, audio io.Reader, contentType string) (*Transcription, error) {
	if contentType == "" {
		contentType = "audio/wav"
	}
	return c.listen(ctx, audio, contentType)
}

// TranscribeURL asks Deepgram to fetch the media itself.
func (c *Client) TranscribeURL(ctx context.Context, mediaURL string) (*Transcription, error) {
	body, err := json.Marshal(map[string]string{"url": mediaURL})
	if err != nil {
		return nil, &Error{Message: "failed to encode request", Cause: err}
	}
	return c.listen(ctx, bytes.NewReader(body), "application/json")
}

func (c *Client) listen(ctx context.Context, body io.Reader, contentType string) (*Transcription, error) {
	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, &Error{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Token "+c.APIKey)
	req.Header.Set("Content-Type", contentType)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(data, "err_msg").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, &Error{
			Message: fmt.Sprintf("Deepgram returned %d: %s", resp.StatusCode, msg),
			Cause:   &fetch.StatusError{URL: endpoint, StatusCode: resp.StatusCode},
		}
	}

	return parseResponse(data)
}

func (c *Client) endpoint() (string, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/v1/listen")
	if err != nil {
		return "", &Error{Message: "invalid base URL", Cause: err}
	}

	q := u.Query()
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	q.Set("model", model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	if c.Language != "" {
		q.Set("language", c.Language)
	} else {
		q.Set("detect_language", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func parseResponse(data []byte) (*Transcription, error) {
	if !gjson.ValidBytes(data) {
		return nil, &Error{Message: "response is not JSON"}
	}

	channel := gjson.GetBytes(data, "results.channels.0")
	alt := channel.Get("alternatives.0")
	if !alt.Exists() {
		return nil, &Error{Message: "response has no alternatives"}
	}

	return &Transcription{
		Transcript: strings.TrimSpace(alt.Get("transcript").String()),
		Confidence: alt.Get("confidence").Float(),
		Duration:   gjson.GetBytes(data, "metadata.duration").Float(),
		Language:   channel.Get("detected_language").String(),
	}, nil
}
