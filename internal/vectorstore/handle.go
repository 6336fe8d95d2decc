package vectorstore

import (
	"context"
	"sync"
)

// Handle is the shared, owned reference to one platform's store. Adds and
// queries may run concurrently with each other; Reset waits for them to
// drain and blocks new ones until it returns.
type Handle struct {
	namespace string
	store     Store

	mu sync.RWMutex
}

// NewHandle wraps store.
func NewHandle(namespace string, store Store) *Handle {
	return &Handle{namespace: namespace, store: store}
}

// Namespace returns the store namespace, e.g. "creator_content_youtube".
func (h *Handle) Namespace() string {
	return h.namespace
}

func (h *Handle) Add(ctx context.Context, doc Document) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store.Add(ctx, doc)
}

func (h *Handle) Query(ctx context.Context, prompt string) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store.Query(ctx, prompt)
}

// Reset clears the store. It returns only after the reset has completed.
func (h *Handle) Reset(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.Reset(ctx)
}
