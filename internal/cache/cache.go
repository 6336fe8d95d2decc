// Package cache stores relevance scores and transcripts between runs so a
// re-run does not repeat LLM and speech-to-text calls.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/creator-persona/internal/types"
)

// DefaultTTL keeps cached values for a week.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a JSON value cache. Get reports found=false for a missing key.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Error describes a failed cache operation.
type Error struct {
	Message string
	Op      string
	Key     string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache %s %q: %s: %v", e.Op, e.Key, e.Message, e.Cause)
	}
	return fmt.Sprintf("cache %s %q: %s", e.Op, e.Key, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ScoreKey is the key of an item's relevance score.
func ScoreKey(platform types.Platform, itemID string) string {
	return fmt.Sprintf("persona:score:%s:%s", platform, itemID)
}

// TranscriptKey is the key of an item's transcript record.
func TranscriptKey(platform types.Platform, itemID string) string {
	return fmt.Sprintf("persona:transcript:%s:%s", platform, itemID)
}

// Nop is a Cache that never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error                  { return nil }
func (Nop) Close() error                                          { return nil }

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Cache used in tests and when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && !entry.expires.IsZero() && m.now().After(entry.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	if dest != nil {
		if err := json.Unmarshal(entry.data, dest); err != nil {
			return false, &Error{Message: "unmarshal failed", Op: "get", Key: key, Cause: err}
		}
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &Error{Message: "marshal failed", Op: "set", Key: key, Cause: err}
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
