package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/creator-persona/internal/config"
	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/persona"
	"github.com/jonathan/creator-persona/internal/pipeline"
	"github.com/jonathan/creator-persona/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full research pipeline end-to-end",
	Long: `Orchestrates the whole process for one creator: fetch -> rank -> transcribe and ingest -> extract
for each platform, then merge -> persona -> Markdown report.

A platform that fails is reported and skipped; the run fails only when every platform fails or the
persona cannot be rendered.`,
	RunE: runPipelineCmd,
}

var (
	runCreator     string
	runYouTube     string
	runInstagram   string
	runParallel    bool
	runSkipReset   bool
	runTopK        int
	runMaxFetch    int
	runConcurrency int
	runStyle       string
	runOutDir      string
	runDatabaseURL string
	runUseBrowser  bool
)

func init() {
	runCommand.Flags().StringVarP(&runCreator, "creator", "c", "", "Creator display name (defaults to a handle)")
	runCommand.Flags().StringVar(&runYouTube, "youtube", "", "YouTube channel handle (@name), channel ID or channel URL")
	runCommand.Flags().StringVar(&runInstagram, "instagram", "", "Instagram username or profile URL")
	runCommand.Flags().BoolVar(&runParallel, "parallel", false, "Run the platforms concurrently")
	runCommand.Flags().BoolVar(&runSkipReset, "skip-reset", false, "Keep existing vector store contents")
	runCommand.Flags().IntVarP(&runTopK, "top-k", "k", 0, "Items kept per platform after ranking")
	runCommand.Flags().IntVar(&runMaxFetch, "max-fetch", 0, "Items fetched per platform")
	runCommand.Flags().IntVar(&runConcurrency, "concurrency", 0, "Concurrent transcriptions per platform (1-5)")
	runCommand.Flags().StringVarP(&runStyle, "style", "s", "", "Example persona whose style is imitated")
	runCommand.Flags().StringVarP(&runOutDir, "out-dir", "o", "", "Directory for persona.txt, report.md and JSON records")
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL URL for artifact persistence (defaults to DATABASE_URL)")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Allow the headless transcript panel fallback (requires Chrome)")

	rootCmd.AddCommand(runCommand)
}

// runTarget names the creator and the handles to research.
type runTarget struct {
	Creator   string
	YouTube   string
	Instagram string
}

func (t runTarget) displayName() string {
	switch {
	case t.Creator != "":
		return t.Creator
	case t.YouTube != "":
		return t.YouTube
	default:
		return t.Instagram
	}
}

// normalized rewrites profile URLs and loosely typed handles into the form
// the fetchers expect.
func (t runTarget) normalized() runTarget {
	t.YouTube = fetch.NormalizeHandle(types.PlatformYouTube, t.YouTube)
	t.Instagram = fetch.NormalizeHandle(types.PlatformInstagram, t.Instagram)
	return t
}

// buildRunOptions wires the services into pipeline options for target. When
// a database is configured the run is recorded under a new run ID.
func buildRunOptions(ctx context.Context, svc *services, cfg *config.Config, target runTarget) (pipeline.RunOptions, error) {
	target = target.normalized()
	creator := target.displayName()
	var platforms []pipeline.PlatformDeps
	for _, pt := range []struct {
		platform types.Platform
		handle   string
	}{
		{types.PlatformYouTube, target.YouTube},
		{types.PlatformInstagram, target.Instagram},
	} {
		if pt.handle == "" {
			continue
		}
		deps, err := svc.PlatformDeps(ctx, pt.platform, pt.handle, creator)
		if err != nil {
			return pipeline.RunOptions{}, fmt.Errorf("failed to set up %s: %w", pt.platform, err)
		}
		platforms = append(platforms, deps)
	}
	if len(platforms) == 0 {
		return pipeline.RunOptions{}, fmt.Errorf("at least one of a YouTube handle or an Instagram username is required")
	}

	renderer, err := svc.Persona(ctx)
	if err != nil {
		return pipeline.RunOptions{}, err
	}
	style, err := persona.LoadStyleTemplate(cfg.StyleTemplate)
	if err != nil {
		return pipeline.RunOptions{}, err
	}

	opts := pipeline.RunOptions{
		Creator:        creator,
		Platforms:      platforms,
		MaxFetch:       cfg.MaxFetch,
		PrefilterLimit: cfg.PrefilterLimit,
		TopK:           cfg.TopK,
		Concurrency:    cfg.Concurrency,
		Parallel:       cfg.Parallel,
		Persona:        renderer,
		StyleTemplate:  style,
		Cache:          svc.Cache(ctx),
		Uploader:       svc.Uploader(ctx),
		Publisher:      svc.Publisher(ctx),
		Subject:        cfg.NATSSubject,
		Logger:         svc.logger,
		Verbose:        cfg.Verbose,
	}

	database, err := svc.DB(ctx)
	switch {
	case err != nil:
		svc.logger.Warn("database unavailable, artifacts will not be recorded", zap.Error(err))
	case database != nil:
		runID, err := database.CreateRun(ctx, creator, target.YouTube, target.Instagram)
		if err != nil {
			svc.logger.Warn("failed to create run record", zap.Error(err))
			break
		}
		opts.Recorder = database
		opts.RunID = runID
	}
	return opts, nil
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	target := runTarget{Creator: cfg.CreatorName, YouTube: cfg.YouTubeHandle, Instagram: cfg.InstagramUsername}
	if flags.Changed("creator") {
		target.Creator = runCreator
	}
	if flags.Changed("youtube") {
		target.YouTube = runYouTube
	}
	if flags.Changed("instagram") {
		target.Instagram = runInstagram
	}
	if flags.Changed("parallel") {
		cfg.Parallel = runParallel
	}
	if flags.Changed("top-k") {
		cfg.TopK = runTopK
	}
	if flags.Changed("max-fetch") {
		cfg.MaxFetch = runMaxFetch
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = runConcurrency
	}
	if flags.Changed("style") {
		cfg.StyleTemplate = runStyle
	}
	if flags.Changed("out-dir") {
		cfg.OutputDir = runOutDir
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}
	if flags.Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if target.YouTube == "" && target.Instagram == "" {
		return fmt.Errorf("at least one of --youtube or --instagram is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts, err := buildRunOptions(ctx, svc, cfg, target)
	if err != nil {
		return err
	}
	opts.SkipReset = runSkipReset
	opts.Out = cmd.OutOrStdout()

	result, runErr := pipeline.RunPipeline(ctx, opts)
	if err := writeRunOutputs(cmd, cfg.OutputDir, result); err != nil {
		return err
	}
	return runErr
}

// writeRunOutputs saves whatever the run produced to dir.
func writeRunOutputs(cmd *cobra.Command, dir string, result *pipeline.Result) error {
	if result == nil || dir == "" {
		return nil
	}
	out := cmd.OutOrStdout()
	for _, pr := range result.Platforms {
		if pr.Info == nil {
			continue
		}
		if err := writeJSON(out, filepath.Join(dir, "creator_info_"+string(pr.Platform)+".json"), pr.Info); err != nil {
			return err
		}
	}
	if result.Merged != nil {
		if err := writeJSON(out, filepath.Join(dir, "creator_info.json"), result.Merged); err != nil {
			return err
		}
	}
	if result.Report != "" {
		if err := writeText(out, filepath.Join(dir, "report.md"), result.Report); err != nil {
			return err
		}
	}
	if result.Persona != "" {
		if err := writeText(out, filepath.Join(dir, "persona.txt"), result.Persona+"\n"); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(out, "Outputs written to %s\n", dir)
	return nil
}
