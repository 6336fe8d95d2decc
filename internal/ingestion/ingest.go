// Package ingestion turns ranked items into transcripts and writes them to a
// platform's vector store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/cache"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/jonathan/creator-persona/internal/vectorstore"
)

// MaxConcurrency bounds concurrent transcriptions.
const MaxConcurrency = 5

// Transcriber recovers the text of one ranked item.
type Transcriber interface {
	Transcribe(ctx context.Context, item types.RankedItem) (types.TranscriptRecord, error)
}

// Skipped is an item that produced nothing for the store.
type Skipped struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// Report summarizes one ingestion batch.
type Report struct {
	Platform  types.Platform           `json:"platform"`
	Attempted int                      `json:"attempted"`
	Ingested  int                      `json:"ingested"`
	Records   []types.TranscriptRecord `json:"records"`
	Skipped   []Skipped                `json:"skipped,omitempty"`
}

// Success reports whether at least one item reached the store.
func (r *Report) Success() bool {
	return r.Ingested > 0
}

// Ingester transcribes items and writes them one at a time.
type Ingester struct {
	Platform    types.Platform
	Transcriber Transcriber
	Writer      *vectorstore.Writer
	// Cache holds transcripts between runs; nil disables it.
	Cache cache.Cache
	TTL   time.Duration
	// Concurrency bounds simultaneous transcriptions (1 to MaxConcurrency).
	Concurrency int
	Logger      *zap.Logger
	now         func() time.Time
}

// NewIngester creates a sequential ingester for platform.
func NewIngester(platform types.Platform, transcriber Transcriber, writer *vectorstore.Writer, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		Platform:    platform,
		Transcriber: transcriber,
		Writer:      writer,
		Cache:       cache.Nop{},
		TTL:         cache.DefaultTTL,
		Concurrency: 1,
		Logger:      logger,
		now:         time.Now,
	}
}

type outcome struct {
	record types.TranscriptRecord
	err    error
}

// Ingest transcribes items and writes every non-empty transcript in item
// order. Per-item failures are logged and skipped. The returned error is
// non-nil only when ctx is done.
func (in *Ingester) Ingest(ctx context.Context, items []types.RankedItem) (*Report, error) {
	report := &Report{Platform: in.Platform, Attempted: len(items)}

	outcomes := in.transcribeAll(ctx, items)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("ingestion cancelled: %w", err)
	}

	for i, item := range items {
		out := outcomes[i]
		if out.err != nil {
			in.Logger.Warn("skipping item",
				zap.String("platform", string(in.Platform)),
				zap.String("item", item.ID),
				zap.Error(out.err))
			report.Skipped = append(report.Skipped, Skipped{ItemID: item.ID, Reason: out.err.Error()})
			continue
		}

		doc := NewDocument(in.Platform, out.record, in.now())
		if doc.Content == "" {
			report.Skipped = append(report.Skipped, Skipped{ItemID: item.ID, Reason: "empty transcript"})
			continue
		}
		if !in.Writer.Write(ctx, doc) {
			report.Skipped = append(report.Skipped, Skipped{ItemID: item.ID, Reason: "store write failed"})
			continue
		}
		report.Ingested++
		report.Records = append(report.Records, out.record)
	}

	if !report.Success() {
		in.Logger.Warn("no items ingested", zap.String("platform", string(in.Platform)), zap.Int("attempted", len(items)))
	} else {
		in.Logger.Info("ingested items",
			zap.String("platform", string(in.Platform)),
			zap.Int("ingested", report.Ingested),
			zap.Int("skipped", len(report.Skipped)))
	}
	return report, nil
}

// transcribeAll runs transcriptions with bounded concurrency. Results keep
// the index of their item.
func (in *Ingester) transcribeAll(ctx context.Context, items []types.RankedItem) []outcome {
	outcomes := make([]outcome, len(items))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(clampConcurrency(in.Concurrency))
	for idx, item := range items {
		idx, item := idx, item
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			record, err := in.transcribe(ctx, item)
			mu.Lock()
			outcomes[idx] = outcome{record: record, err: err}
			mu.Unlock()
		})
	}
	p.Wait()
	return outcomes
}

func (in *Ingester) transcribe(ctx context.Context, item types.RankedItem) (types.TranscriptRecord, error) {
	c := in.Cache
	if c == nil {
		c = cache.Nop{}
	}
	key := cache.TranscriptKey(in.Platform, item.ID)

	var cached types.TranscriptRecord
	if found, err := c.Get(ctx, key, &cached); err == nil && found && cached.Text != "" {
		return cached, nil
	}

	record, err := in.Transcriber.Transcribe(ctx, item)
	if err != nil {
		return record, err
	}
	if record.Text == "" {
		return record, errors.New("empty transcript")
	}
	if err := c.Set(ctx, key, record, in.TTL); err != nil {
		in.Logger.Debug("transcript not cached", zap.String("item", item.ID), zap.Error(err))
	}
	return record, nil
}

func clampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}
