// Package extraction builds a ContentCreatorInfo for one platform by asking
// questions of that platform's vector store.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/merge"
	"github.com/jonathan/creator-persona/internal/parsing"
	"github.com/jonathan/creator-persona/internal/prompts"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/jonathan/creator-persona/internal/vectorstore"
)

// Pass names a query round. Each pass yields one record.
type Pass string

const (
	// PassInitial asks for names, language, business, life events and values
	PassInitial Pass = "initial-info"
	// PassFollowUp asks for challenges, achievements and anything missed
	PassFollowUp Pass = "follow-up-info"
)

// Passes lists the query rounds in the order they run.
var Passes = []Pass{PassInitial, PassFollowUp}

// QueryError reports a pass whose store query failed.
type QueryError struct {
	Platform types.Platform
	Pass     Pass
	Cause    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("extraction query %s for %s failed: %v", e.Pass, e.Platform, e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Extractor runs the query passes and merges their answers.
type Extractor struct {
	Store   vectorstore.Store
	Creator string
	Merger  *merge.Merger
	Logger  *zap.Logger
}

// NewExtractor creates an extractor over one platform's store.
func NewExtractor(store vectorstore.Store, creator string, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{Store: store, Creator: creator, Merger: merge.New(merge.Options{}), Logger: logger}
}

// Extract returns the merged record of every pass. The record is always
// complete; missing facts are placeholders. An error is returned only when
// every pass failed at the store, and the placeholder record comes with it.
func (e *Extractor) Extract(ctx context.Context, platform types.Platform) (*types.ContentCreatorInfo, error) {
	records := make([]*types.ContentCreatorInfo, 0, len(Passes))
	var errs []error

	for _, pass := range Passes {
		record, err := e.run(ctx, platform, pass)
		if err != nil {
			e.Logger.Warn("extraction pass failed",
				zap.String("platform", string(platform)),
				zap.String("pass", string(pass)),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		records = append(records, record)
	}

	merger := e.Merger
	if merger == nil {
		merger = merge.New(merge.Options{})
	}
	info := merger.MergeAll(records...)

	if len(records) == 0 {
		return info, errors.Join(errs...)
	}
	return info, nil
}

// ExtractPass runs a single pass. Parse failures never surface; only store
// failures do.
func (e *Extractor) ExtractPass(ctx context.Context, platform types.Platform, pass Pass) (*types.ContentCreatorInfo, error) {
	return e.run(ctx, platform, pass)
}

func (e *Extractor) run(ctx context.Context, platform types.Platform, pass Pass) (*types.ContentCreatorInfo, error) {
	question, err := BuildQuestion(platform, pass, e.Creator)
	if err != nil {
		return nil, &QueryError{Platform: platform, Pass: pass, Cause: err}
	}

	answer, err := e.Store.Query(ctx, question)
	if err != nil {
		return nil, &QueryError{Platform: platform, Pass: pass, Cause: err}
	}
	if strings.TrimSpace(answer) == "" {
		e.Logger.Info("empty answer", zap.String("platform", string(platform)), zap.String("pass", string(pass)))
	}

	return parsing.ParseAnswer(answer), nil
}

// BuildQuestion renders the question for a pass.
func BuildQuestion(platform types.Platform, pass Pass, creator string) (string, error) {
	if creator == "" {
		creator = "this creator"
	}
	return prompts.Render("extraction.json", string(pass), map[string]string{
		"Platform": platformLabel(platform),
		"Creator":  creator,
	})
}

func platformLabel(p types.Platform) string {
	switch p {
	case types.PlatformYouTube:
		return "YouTube"
	case types.PlatformInstagram:
		return "Instagram"
	default:
		return string(p)
	}
}
