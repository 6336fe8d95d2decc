// Package vectorstore holds transcript text for retrieval-augmented queries.
// Each platform gets its own namespace so extraction for one platform only
// sees that platform's content.
package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/creator-persona/internal/retry"
	"github.com/jonathan/creator-persona/internal/types"
)

// DataType records how a document's text was obtained.
type DataType string

const (
	// DataTypeText is text that was already textual (captions, post captions)
	DataTypeText DataType = "text"
	// DataTypeAudio is text transcribed from audio
	DataTypeAudio DataType = "audio"
)

// Document is one unit written to the store.
type Document struct {
	ID       string
	Content  string
	DataType DataType
	Metadata map[string]any
}

// Store is a retrieval-augmented text store.
type Store interface {
	// Add indexes one document. Content must be non-empty.
	Add(ctx context.Context, doc Document) error
	// Query answers prompt from the indexed content. An empty store yields "".
	Query(ctx context.Context, prompt string) (string, error)
	// Reset removes every document.
	Reset(ctx context.Context) error
}

// Error represents a store failure. Store failures are fatal for the
// platform that owns the store.
type Error struct {
	Op        string
	Namespace string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vector store %s %s: %s: %v", e.Namespace, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("vector store %s %s: %s", e.Namespace, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Namespace returns the collection name for a platform, e.g. "creator_content_youtube".
func Namespace(prefix string, platform types.Platform) string {
	if prefix == "" {
		prefix = "creator_content"
	}
	return prefix + "_" + string(platform)
}

// Chunk sizes in runes. Transcripts are split so every embedding input stays
// well under model limits.
const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

// SplitText cuts text into chunks of at most size runes, overlapping by
// overlap runes and preferring to break at whitespace.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := min(start+size, len(runes))
		if end < len(runes) {
			// Back up to the last space in the second half of the window
			for i := end; i > start+size/2; i-- {
				if runes[i-1] == ' ' || runes[i-1] == '\n' {
					end = i
					break
				}
			}
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		start = max(end-overlap, start+1)
	}
	return chunks
}

// Retryable reports whether the underlying cause is transient.
func (e *Error) Retryable() bool {
	return retry.IsTransient(e.Cause)
}
