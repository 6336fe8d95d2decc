// Package pipeline provides the high-level orchestration of the creator
// research process: per-platform collection and extraction, then merge,
// persona and report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/creator-persona/internal/cache"
	"github.com/jonathan/creator-persona/internal/db"
	"github.com/jonathan/creator-persona/internal/events"
	"github.com/jonathan/creator-persona/internal/extraction"
	"github.com/jonathan/creator-persona/internal/ingestion"
	"github.com/jonathan/creator-persona/internal/merge"
	"github.com/jonathan/creator-persona/internal/observability"
	"github.com/jonathan/creator-persona/internal/pipeline/steps"
	"github.com/jonathan/creator-persona/internal/ranking"
	"github.com/jonathan/creator-persona/internal/report"
	"github.com/jonathan/creator-persona/internal/storage"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/jonathan/creator-persona/internal/vectorstore"
)

// Defaults for RunOptions fields left at zero.
const (
	DefaultMaxFetch = 200
	totalSteps      = 7
)

// ErrNoContent is returned for a platform whose handle yielded no usable items.
var ErrNoContent = errors.New("no content found")

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Platform string `json:"platform,omitempty"`
	Status   string `json:"status,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// FetchFunc lists up to limit content items for a handle.
type FetchFunc func(ctx context.Context, handle string, limit int) ([]types.ContentItem, error)

// ItemRanker scores candidates and keeps the topK most relevant.
type ItemRanker interface {
	Rank(ctx context.Context, items []types.ContentItem, topK int) ([]types.RankedItem, error)
}

// PersonaRenderer re-voices a merged record.
type PersonaRenderer interface {
	Render(ctx context.Context, info *types.ContentCreatorInfo, styleTemplate string) (string, error)
}

// Recorder persists run progress and artifacts. *db.DB satisfies it.
type Recorder interface {
	SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error
	SaveTextArtifact(ctx context.Context, runID uuid.UUID, step, category, text string) error
	CreateRunStep(ctx context.Context, runID uuid.UUID, input *db.RunStepInput) (*db.RunStep, error)
	UpdateRunStepStatus(ctx context.Context, runID uuid.UUID, stepName string, status string, errorMsg *string, artifactID *uuid.UUID) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string) error
}

// PlatformDeps wires one platform sub-pipeline.
type PlatformDeps struct {
	Platform    types.Platform
	Handle      string
	Fetch       FetchFunc
	Ranker      ItemRanker
	Transcriber ingestion.Transcriber
	Store       *vectorstore.Handle
	// WriterOptions configure the store writer, e.g. retries for Instagram.
	WriterOptions []vectorstore.WriterOption
}

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Creator   string
	Platforms []PlatformDeps

	MaxFetch       int
	PrefilterLimit int
	TopK           int
	Concurrency    int
	// Parallel runs the platform sub-pipelines concurrently.
	Parallel bool
	// SkipReset keeps existing store contents instead of wiping them before ingestion.
	SkipReset bool

	Persona       PersonaRenderer
	StyleTemplate string

	Cache     cache.Cache
	Recorder  Recorder
	RunID     uuid.UUID
	Uploader  storage.Uploader
	Publisher events.Publisher
	Subject   string

	OnProgress ProgressCallback
	Logger     *zap.Logger
	Verbose    bool
	Out        io.Writer
}

// PlatformResult holds what one platform sub-pipeline produced.
type PlatformResult struct {
	Platform types.Platform            `json:"platform"`
	Fetched  int                       `json:"fetched"`
	Items    []types.ContentItem       `json:"items,omitempty"`
	Ranked   []types.RankedItem        `json:"ranked,omitempty"`
	Ingest   *ingestion.Report         `json:"ingest,omitempty"`
	Info     *types.ContentCreatorInfo `json:"info,omitempty"`
	Err      error                     `json:"-"`
}

// Result is the outcome of a pipeline run. It is returned even when the run
// fails, carrying whatever was produced.
type Result struct {
	RunID          uuid.UUID                 `json:"run_id"`
	Platforms      []*PlatformResult         `json:"platforms"`
	PlatformErrors map[types.Platform]string `json:"platform_errors,omitempty"`
	Merged         *types.ContentCreatorInfo `json:"merged"`
	Persona        string                    `json:"persona,omitempty"`
	Report         string                    `json:"report"`
	Uploads        map[string]string         `json:"uploads,omitempty"`
	byPlatform     map[types.Platform]*PlatformResult
}

// Platform returns the result for p, or nil.
func (r *Result) Platform(p types.Platform) *PlatformResult {
	return r.byPlatform[p]
}

// logPrefix is used to distinguish concurrent log output
func logPrefix(platform types.Platform) string {
	switch platform {
	case types.PlatformYouTube:
		return "[YouTube]   "
	case types.PlatformInstagram:
		return "[Instagram] "
	default:
		return "[" + string(platform) + "] "
	}
}

// runner carries the state shared by the steps of one run.
type runner struct {
	opts    RunOptions
	logger  *zap.Logger
	printer *observability.Printer
	out     io.Writer
	mu      sync.Mutex
}

func newRunner(opts RunOptions) *runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.MaxFetch <= 0 {
		opts.MaxFetch = DefaultMaxFetch
	}
	if opts.PrefilterLimit <= 0 {
		opts.PrefilterLimit = ranking.DefaultPrefilterLimit
	}
	if opts.TopK <= 0 {
		opts.TopK = ranking.DefaultTopK
	}
	if opts.Subject == "" {
		opts.Subject = events.DefaultSubject
	}
	out := &syncWriter{w: opts.Out}
	return &runner{
		opts:    opts,
		logger:  opts.Logger,
		printer: observability.NewPrinter(out),
		out:     out,
	}
}

// syncWriter serializes writes from concurrent platform branches.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

//nolint:errcheck // progress output
func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// emitProgress calls the progress callback and publisher if configured
func (r *runner) emitProgress(event ProgressEvent) {
	if r.opts.RunID != uuid.Nil {
		event.RunID = r.opts.RunID.String()
	}
	if event.Category == "" {
		event.Category = steps.StepRegistry[event.Step].Category
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(event)
	}
	if r.opts.Publisher != nil {
		if err := r.opts.Publisher.Publish(r.opts.Subject, event); err != nil {
			r.logger.Warn("failed to publish progress", zap.String("step", event.Step), zap.Error(err))
		}
	}
}

func (r *runner) recording() bool {
	return r.opts.Recorder != nil && r.opts.RunID != uuid.Nil
}

func (r *runner) startStep(ctx context.Context, step string, params map[string]any) {
	if !r.recording() {
		return
	}
	_, err := r.opts.Recorder.CreateRunStep(ctx, r.opts.RunID, &db.RunStepInput{
		Step:       step,
		Category:   steps.StepRegistry[step].Category,
		Status:     db.StepStatusInProgress,
		Parameters: params,
	})
	if err != nil {
		r.logger.Warn("failed to record step start", zap.String("step", step), zap.Error(err))
	}
}

func (r *runner) finishStep(ctx context.Context, step string, stepErr error) {
	if !r.recording() {
		return
	}
	status := db.StepStatusCompleted
	var msg *string
	if stepErr != nil {
		status = db.StepStatusFailed
		s := stepErr.Error()
		msg = &s
	}
	if err := r.opts.Recorder.UpdateRunStepStatus(ctx, r.opts.RunID, step, status, msg, nil); err != nil {
		r.logger.Warn("failed to record step status", zap.String("step", step), zap.Error(err))
	}
}

func (r *runner) skipStep(ctx context.Context, step string) {
	if !r.recording() {
		return
	}
	if _, err := r.opts.Recorder.CreateRunStep(ctx, r.opts.RunID, &db.RunStepInput{
		Step:     step,
		Category: steps.StepRegistry[step].Category,
		Status:   db.StepStatusSkipped,
	}); err != nil {
		r.logger.Warn("failed to record skipped step", zap.String("step", step), zap.Error(err))
	}
}

func (r *runner) saveArtifact(ctx context.Context, step, category string, content any) {
	if !r.recording() {
		return
	}
	if err := r.opts.Recorder.SaveArtifact(ctx, r.opts.RunID, step, category, content); err != nil {
		r.logger.Warn("failed to save artifact", zap.String("artifact", step), zap.Error(err))
	}
}

func (r *runner) saveText(ctx context.Context, step, category, text string) {
	if !r.recording() {
		return
	}
	if err := r.opts.Recorder.SaveTextArtifact(ctx, r.opts.RunID, step, category, text); err != nil {
		r.logger.Warn("failed to save artifact", zap.String("artifact", step), zap.Error(err))
	}
}

// RunPlatform runs fetch, prefilter, rank, reset, ingest and extract for one
// platform. The returned result is never nil. A non-nil error means the
// platform produced no usable record.
func RunPlatform(ctx context.Context, opts RunOptions, deps PlatformDeps) (*PlatformResult, error) {
	return newRunner(opts).runPlatform(ctx, deps)
}

func (r *runner) runPlatform(ctx context.Context, deps PlatformDeps) (*PlatformResult, error) {
	p := deps.Platform
	prefix := logPrefix(p)
	res := &PlatformResult{Platform: p}
	logger := r.logger.With(zap.String("platform", string(p)))

	fail := func(step string, err error) (*PlatformResult, error) {
		r.finishStep(ctx, step, err)
		r.emitProgress(ProgressEvent{Step: step, Platform: string(p), Status: db.StepStatusFailed, Message: err.Error()})
		res.Err = err
		for _, later := range laterSteps(p, step) {
			r.skipStep(ctx, later)
		}
		return res, err
	}

	if deps.Fetch == nil || deps.Ranker == nil || deps.Transcriber == nil || deps.Store == nil {
		return fail(steps.Name(p, steps.KindFetch), fmt.Errorf("%s is not configured", p))
	}

	// Fetch and prefilter
	step := steps.Name(p, steps.KindFetch)
	r.printf("%sStep 1/%d: Fetching content for %s...\n", prefix, totalSteps, deps.Handle)
	r.startStep(ctx, step, map[string]any{"handle": deps.Handle, "max_fetch": r.opts.MaxFetch})
	items, err := deps.Fetch(ctx, deps.Handle, r.opts.MaxFetch)
	if err != nil {
		return fail(step, fmt.Errorf("%s fetch failed: %w", p, err))
	}
	res.Fetched = len(items)
	res.Items = ranking.PrefilterByEngagement(items, r.opts.PrefilterLimit)
	if len(res.Items) == 0 {
		return fail(step, fmt.Errorf("%s handle %q: %w", p, deps.Handle, ErrNoContent))
	}
	if r.opts.Verbose {
		r.printer.PrintContentItems(p, res.Fetched, res.Items)
	}
	r.saveArtifact(ctx, db.PlatformStep(p, db.KindContentItems), db.StepCategoryCollection, res.Items)
	r.finishStep(ctx, step, nil)
	r.emitProgress(ProgressEvent{Step: step, Platform: string(p), Status: db.StepStatusCompleted,
		Message: fmt.Sprintf("Fetched %d items, kept %d by engagement", res.Fetched, len(res.Items))})

	// Rank
	step = steps.Name(p, steps.KindRank)
	r.printf("%sStep 2/%d: Ranking %d candidates by relevance...\n", prefix, totalSteps, len(res.Items))
	r.startStep(ctx, step, map[string]any{"top_k": r.opts.TopK})
	res.Ranked, err = deps.Ranker.Rank(ctx, res.Items, r.opts.TopK)
	if err != nil {
		return fail(step, fmt.Errorf("%s ranking failed: %w", p, err))
	}
	if r.opts.Verbose {
		r.printer.PrintRankedItems(p, res.Ranked)
	}
	r.saveArtifact(ctx, db.PlatformStep(p, db.KindRankedItems), db.StepCategoryCollection,
		types.RankedItems{Platform: p, Creator: r.opts.Creator, Items: res.Ranked})
	r.finishStep(ctx, step, nil)
	r.emitProgress(ProgressEvent{Step: step, Platform: string(p), Status: db.StepStatusCompleted,
		Message: fmt.Sprintf("Kept top %d items", len(res.Ranked)), Content: res.Ranked})

	// Reset and ingest
	step = steps.Name(p, steps.KindIngest)
	r.startStep(ctx, step, map[string]any{"concurrency": r.opts.Concurrency, "reset": !r.opts.SkipReset})
	if !r.opts.SkipReset {
		r.printf("%sResetting vector store %s...\n", prefix, deps.Store.Namespace())
		if err := deps.Store.Reset(ctx); err != nil {
			return fail(step, fmt.Errorf("%s store reset failed: %w", p, err))
		}
	}

	r.printf("%sStep 3/%d: Transcribing and ingesting %d items...\n", prefix, totalSteps, len(res.Ranked))
	writerOpts := append(append([]vectorstore.WriterOption(nil), deps.WriterOptions...), vectorstore.WithLogger(logger))
	ingester := ingestion.NewIngester(p, deps.Transcriber, vectorstore.NewWriter(deps.Store, writerOpts...), logger)
	ingester.Cache = r.opts.Cache
	if r.opts.Concurrency > 0 {
		ingester.Concurrency = r.opts.Concurrency
	}
	res.Ingest, err = ingester.Ingest(ctx, res.Ranked)
	if err != nil {
		return fail(step, fmt.Errorf("%s ingestion failed: %w", p, err))
	}
	if r.opts.Verbose {
		r.printer.PrintIngestReport(res.Ingest)
	}
	if !res.Ingest.Success() {
		r.printf("%sWarning: no items were ingested; extraction will return placeholders\n", prefix)
	}
	r.saveArtifact(ctx, db.PlatformStep(p, db.KindTranscripts), db.StepCategoryIngestion, res.Ingest.Records)
	r.saveArtifact(ctx, db.PlatformStep(p, db.KindIngestReport), db.StepCategoryIngestion, res.Ingest)
	r.finishStep(ctx, step, nil)
	r.emitProgress(ProgressEvent{Step: step, Platform: string(p), Status: db.StepStatusCompleted,
		Message: fmt.Sprintf("Ingested %d of %d items", res.Ingest.Ingested, res.Ingest.Attempted)})

	// Extract
	step = steps.Name(p, steps.KindExtract)
	r.printf("%sStep 4/%d: Extracting creator information...\n", prefix, totalSteps)
	r.startStep(ctx, step, nil)
	res.Info, err = extraction.NewExtractor(deps.Store, r.opts.Creator, logger).Extract(ctx, p)
	if err != nil {
		return fail(step, fmt.Errorf("%s extraction failed: %w", p, err))
	}
	if r.opts.Verbose {
		r.printer.PrintCreatorInfo(string(p)+" creator info", res.Info)
	}
	r.saveArtifact(ctx, db.PlatformStep(p, db.KindCreatorInfo), db.StepCategoryExtraction, res.Info)
	r.finishStep(ctx, step, nil)
	r.emitProgress(ProgressEvent{Step: step, Platform: string(p), Status: db.StepStatusCompleted,
		Message: "Extracted creator information", Content: res.Info})

	r.printf("%s✅ %s complete.\n", prefix, p)
	return res, nil
}

// laterSteps lists the platform steps after step.
func laterSteps(p types.Platform, step string) []string {
	all := steps.PlatformSteps(p)
	for i, s := range all {
		if s == step {
			return all[i+1:]
		}
	}
	return nil
}

// RunPipeline runs every configured platform, merges their records and
// renders the persona and the Markdown report. A failing platform does not
// stop the others. The returned error is non-nil when every platform failed,
// when persona rendering failed or when ctx was cancelled; the Result is
// returned in every case.
func RunPipeline(ctx context.Context, opts RunOptions) (*Result, error) {
	r := newRunner(opts)
	result := &Result{
		RunID:          r.opts.RunID,
		PlatformErrors: map[types.Platform]string{},
		byPlatform:     map[types.Platform]*PlatformResult{},
	}

	if len(r.opts.Platforms) == 0 {
		return result, fmt.Errorf("no platforms configured")
	}
	if r.opts.Persona == nil {
		return result, fmt.Errorf("persona renderer is required")
	}

	results := make([]*PlatformResult, len(r.opts.Platforms))
	if r.opts.Parallel {
		r.printf("\n🚀 Running %d platforms in parallel...\n\n", len(r.opts.Platforms))
		g, gCtx := errgroup.WithContext(ctx)
		for i, deps := range r.opts.Platforms {
			g.Go(func() error {
				// Platform failures are recorded in the result, never returned,
				// so one platform cannot cancel the other.
				results[i], _ = r.runPlatform(gCtx, deps)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, deps := range r.opts.Platforms {
			results[i], _ = r.runPlatform(ctx, deps)
		}
	}

	var infos []*types.ContentCreatorInfo
	var errs []error
	for _, res := range results {
		result.Platforms = append(result.Platforms, res)
		result.byPlatform[res.Platform] = res
		if res.Err != nil {
			result.PlatformErrors[res.Platform] = res.Err.Error()
			errs = append(errs, res.Err)
			r.printf("%sWarning: %v\n", logPrefix(res.Platform), res.Err)
			continue
		}
		infos = append(infos, res.Info)
	}

	if err := ctx.Err(); err != nil {
		r.completeRun(ctx, db.RunStatusFailed)
		return result, fmt.Errorf("pipeline cancelled: %w", err)
	}

	// Merge
	r.printf("\nStep 5/%d: Merging %d platform records...\n", totalSteps, len(infos))
	r.startStep(ctx, steps.StepMerge, map[string]any{"records": len(infos)})
	result.Merged = merge.MergeAll(infos...)
	if r.opts.Verbose {
		r.printer.PrintCreatorInfo("Merged creator info", result.Merged)
	}
	r.saveArtifact(ctx, db.StepMergedInfo, db.StepCategorySynthesis, result.Merged)
	r.finishStep(ctx, steps.StepMerge, nil)
	r.emitProgress(ProgressEvent{Step: steps.StepMerge, Status: db.StepStatusCompleted,
		Message: fmt.Sprintf("Merged %d records", len(infos)), Content: result.Merged})

	// The report is rendered even when every platform failed.
	result.Report = report.RenderMarkdown(result.Merged)

	var runErr error
	if len(infos) == 0 {
		runErr = fmt.Errorf("all platforms failed: %w", errors.Join(errs...))
		r.printf("Step 6/%d: Skipping persona, no platform produced data\n", totalSteps)
		r.skipStep(ctx, steps.StepRenderPersona)
	} else {
		r.printf("Step 6/%d: Rendering persona...\n", totalSteps)
		r.startStep(ctx, steps.StepRenderPersona, nil)
		persona, err := r.opts.Persona.Render(ctx, result.Merged, r.opts.StyleTemplate)
		if err != nil {
			runErr = fmt.Errorf("persona rendering failed: %w", err)
			r.finishStep(ctx, steps.StepRenderPersona, err)
			r.emitProgress(ProgressEvent{Step: steps.StepRenderPersona, Status: db.StepStatusFailed, Message: err.Error()})
		} else {
			result.Persona = persona
			if r.opts.Verbose {
				r.printer.PrintPersona(persona)
			}
			r.saveText(ctx, db.StepPersona, db.StepCategorySynthesis, persona)
			r.finishStep(ctx, steps.StepRenderPersona, nil)
			r.emitProgress(ProgressEvent{Step: steps.StepRenderPersona, Status: db.StepStatusCompleted,
				Message: "Rendered persona", Content: persona})
		}
	}

	r.printf("Step 7/%d: Rendering Markdown report...\n", totalSteps)
	r.startStep(ctx, steps.StepRenderReport, nil)
	r.saveText(ctx, db.StepReport, db.StepCategorySynthesis, result.Report)
	r.finishStep(ctx, steps.StepRenderReport, nil)
	r.emitProgress(ProgressEvent{Step: steps.StepRenderReport, Status: db.StepStatusCompleted, Message: "Rendered report"})

	result.Uploads = r.upload(ctx, result)

	switch {
	case runErr != nil:
		r.completeRun(ctx, db.RunStatusFailed)
	case len(errs) > 0:
		r.completeRun(ctx, db.RunStatusPartial)
	default:
		r.completeRun(ctx, db.RunStatusCompleted)
	}

	if runErr == nil {
		r.printf("Done! Persona for %s is ready.\n", displayCreator(r.opts.Creator))
	}
	return result, runErr
}

func (r *runner) completeRun(ctx context.Context, status string) {
	if !r.recording() {
		return
	}
	if err := r.opts.Recorder.CompleteRun(context.WithoutCancel(ctx), r.opts.RunID, status); err != nil {
		r.logger.Warn("failed to complete run", zap.Error(err))
	}
}

// upload archives the outputs and returns their locations by name.
func (r *runner) upload(ctx context.Context, result *Result) map[string]string {
	if r.opts.Uploader == nil {
		return nil
	}
	runID := time.Now().UTC().Format("20060102T150405Z")
	if r.opts.RunID != uuid.Nil {
		runID = r.opts.RunID.String()
	}

	uploads := map[string]string{}
	put := func(name string, fn func(key string) (string, error)) {
		loc, err := fn(storage.ObjectKey(r.opts.Creator, runID, name))
		if err != nil {
			r.logger.Warn("upload failed", zap.String("object", name), zap.Error(err))
			return
		}
		uploads[name] = loc
	}

	put("report.md", func(key string) (string, error) {
		return r.opts.Uploader.UploadText(ctx, key, result.Report, storage.ContentTypeMarkdown)
	})
	put("creator_info.json", func(key string) (string, error) {
		return storage.UploadJSON(ctx, r.opts.Uploader, key, result.Merged)
	})
	if result.Persona != "" {
		put("persona.txt", func(key string) (string, error) {
			return r.opts.Uploader.UploadText(ctx, key, result.Persona, storage.ContentTypeText)
		})
	}
	return uploads
}

func displayCreator(creator string) string {
	if strings.TrimSpace(creator) == "" {
		return "the creator"
	}
	return creator
}
