// Package fetch is the shared HTTP layer of the platform fetchers and
// transcript strategies.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is a desktop browser string. Platform pages serve
	// reduced markup to obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

	// DefaultMaxBody caps how much of a page or API response is read.
	DefaultMaxBody = 32 << 20
)

// Result is a fetched response body.
type Result struct {
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

func (r *Result) Text() string {
	return string(r.Body)
}

// Error is a request that never produced a usable response.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusError is returned when the server answered with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt (429 or 5xx).
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configures a request. The zero value is usable.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	Cookies   []*http.Cookie
	// MaxBody limits the bytes read from the response; DefaultMaxBody when zero.
	MaxBody int64
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

func DefaultOptions() *Options {
	return &Options{Timeout: DefaultTimeout, UserAgent: DefaultUserAgent}
}

func (o *Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	if o.Timeout > 0 {
		return &http.Client{Timeout: o.Timeout}
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (o *Options) request(ctx context.Context, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	ua := o.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	for k, v := range o.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range o.Cookies {
		req.AddCookie(c)
	}
	return req, nil
}

// URL performs a GET. On a non-2xx status both the Result and a
// *StatusError are returned so callers can inspect the body.
func URL(ctx context.Context, target string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if u, err := url.Parse(target); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{URL: target, Message: "invalid URL", Cause: err}
	}

	req, err := opts.request(ctx, target)
	if err != nil {
		return nil, &Error{URL: target, Message: "build request", Cause: err}
	}
	resp, err := opts.client().Do(req)
	if err != nil {
		return nil, &Error{URL: target, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	limit := opts.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, &Error{URL: target, Message: "read body", Cause: err}
	}

	res := &Result{
		URL:         target,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode/100 != 2 {
		return res, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	return res, nil
}
