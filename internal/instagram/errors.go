package instagram

import (
	"errors"
	"fmt"

	"github.com/jonathan/creator-persona/internal/fetch"
)

// SessionError signals that Instagram rejected the request for lack of a
// valid login session. Sessions expire and rate-limited sessions recover, so
// the error is retryable.
type SessionError struct {
	Username string
	Message  string
	Cause    error
}

func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("instagram session error for %s: %s: %v", e.Username, e.Message, e.Cause)
	}
	return fmt.Sprintf("instagram session error for %s: %s", e.Username, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// Retryable marks session failures as transient.
func (e *SessionError) Retryable() bool {
	return true
}

// ProfileNotFoundError is returned for unknown or private profiles.
type ProfileNotFoundError struct {
	Username string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("instagram profile %s not found", e.Username)
}

// DownloadError represents a failed media download. Transient marks
// transport and body-read failures that a fresh attempt may not hit.
type DownloadError struct {
	URL       string
	Message   string
	Cause     error
	Transient bool
}

func (e *DownloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("download %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("download %s: %s", e.URL, e.Message)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// Retryable defers to the status code for HTTP status failures.
func (e *DownloadError) Retryable() bool {
	var statusErr *fetch.StatusError
	if errors.As(e.Cause, &statusErr) {
		return statusErr.Retryable()
	}
	return e.Transient
}

// TranscodeError represents an ffmpeg failure.
type TranscodeError struct {
	Input  string
	Output string
	Cause  error
}

func (e *TranscodeError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("transcode %s: %v: %s", e.Input, e.Cause, e.Output)
	}
	return fmt.Sprintf("transcode %s: %v", e.Input, e.Cause)
}

func (e *TranscodeError) Unwrap() error {
	return e.Cause
}
