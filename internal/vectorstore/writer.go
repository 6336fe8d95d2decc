package vectorstore

import (
	"context"
	"time"

	"github.com/jonathan/creator-persona/internal/retry"
	"go.uber.org/zap"
)

// Writer pushes single documents into a store. Each write is its own unit;
// there is no batching. Retries are off unless WithRetry is given, and then
// only transient errors are retried, so delivery is at least once.
type Writer struct {
	store  Store
	policy retry.Policy
	logger *zap.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithRetry enables retries of transient failures.
func WithRetry(policy retry.Policy) WriterOption {
	return func(w *Writer) {
		w.policy = policy
	}
}

// WithLogger sets the writer's logger.
func WithLogger(logger *zap.Logger) WriterOption {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a writer over store.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{store: store, policy: retry.NoRetry(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write stores doc and reports whether it succeeded. Failures are logged.
func (w *Writer) Write(ctx context.Context, doc Document) bool {
	if err := w.WriteErr(ctx, doc); err != nil {
		w.logger.Warn("vector store write failed",
			zap.String("doc", doc.ID),
			zap.Error(err))
		return false
	}
	return true
}

// WriteErr is Write with the final error.
func (w *Writer) WriteErr(ctx context.Context, doc Document) error {
	return retry.Do(ctx, w.policy, func(ctx context.Context) error {
		return w.store.Add(ctx, doc)
	}, func(err error, wait time.Duration) {
		w.logger.Info("retrying vector store write",
			zap.String("doc", doc.ID),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
}
