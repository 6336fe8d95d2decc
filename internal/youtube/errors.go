package youtube

import "fmt"

// FetchError represents a failure listing a channel's videos.
type FetchError struct {
	Handle  string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("youtube fetch %s: %s: %v", e.Handle, e.Message, e.Cause)
	}
	return fmt.Sprintf("youtube fetch %s: %s", e.Handle, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// ChannelNotFoundError is returned when a handle resolves to no channel.
type ChannelNotFoundError struct {
	Handle string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("youtube channel %s not found", e.Handle)
}

// CaptionError represents a failure loading caption tracks or caption text.
type CaptionError struct {
	VideoID string
	Message string
	Cause   error
}

func (e *CaptionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("captions for %s: %s: %v", e.VideoID, e.Message, e.Cause)
	}
	return fmt.Sprintf("captions for %s: %s", e.VideoID, e.Message)
}

func (e *CaptionError) Unwrap() error {
	return e.Cause
}
