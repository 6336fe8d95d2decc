package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/ingestion"
	"github.com/jonathan/creator-persona/internal/schemas"
	"github.com/jonathan/creator-persona/internal/types"
	"github.com/jonathan/creator-persona/internal/vectorstore"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Transcribe ranked items into the platform's vector store",
	Long: `Resets the platform's vector store, transcribes every ranked item and stores the transcripts.

The memory backend does not outlive the process; use store_backend "milvus" to ingest and extract
in separate invocations.`,
	RunE: runIngest,
}

var (
	ingestRanked      string
	ingestSkipReset   bool
	ingestConcurrency int
	ingestOutput      string
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestRanked, "ranked", "r", "", "Path to RankedItems JSON from rank (required)")
	ingestCmd.Flags().BoolVar(&ingestSkipReset, "skip-reset", false, "Keep existing store contents")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "Concurrent transcriptions (1-5)")
	ingestCmd.Flags().StringVarP(&ingestOutput, "out", "o", "", "Write the ingestion report JSON here (stdout if empty)")
	requireFlags(ingestCmd, "ranked")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	data, err := os.ReadFile(ingestRanked)
	if err != nil {
		return fmt.Errorf("failed to read ranked items file %s: %w", ingestRanked, err)
	}
	if err := schemas.ValidateRankedItems(data); err != nil {
		return fmt.Errorf("invalid ranked items file %s: %w", ingestRanked, err)
	}
	var ranked types.RankedItems
	if err := json.Unmarshal(data, &ranked); err != nil {
		return fmt.Errorf("failed to unmarshal ranked items JSON: %w", err)
	}
	platform, err := types.ParsePlatform(string(ranked.Platform))
	if err != nil {
		return err
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = ingestConcurrency
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if cfg.StoreBackend != "milvus" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: memory store contents are discarded when this command exits")
	}

	store, err := svc.Store(ctx, platform)
	if err != nil {
		return err
	}
	transcriber, err := svc.Transcriber(platform)
	if err != nil {
		return err
	}

	if !ingestSkipReset {
		if err := store.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset %s: %w", store.Namespace(), err)
		}
	}

	ingester := ingestion.NewIngester(platform, transcriber,
		vectorstore.NewWriter(store, append(svc.writerOptions(), vectorstore.WithLogger(svc.logger))...), svc.logger)
	ingester.Cache = svc.Cache(ctx)
	ingester.Concurrency = cfg.Concurrency

	report, err := ingester.Ingest(ctx, ranked.Items)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if !report.Success() {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: no items were ingested")
	}
	return writeJSON(cmd.OutOrStdout(), ingestOutput, report)
}
