package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/fetch"
	"github.com/jonathan/creator-persona/internal/ranking"
	"github.com/jonathan/creator-persona/internal/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "List a creator's recent videos or posts",
	Long:  "Fetches up to --max items from one platform, keeps the most engaging ones and writes them as a ContentItem JSON list.",
	RunE:  runFetch,
}

var (
	fetchPlatform  string
	fetchHandle    string
	fetchMax       int
	fetchPrefilter int
	fetchOutput    string
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchPlatform, "platform", "p", "", "Platform: youtube or instagram (detected from --handle when it is a URL)")
	fetchCmd.Flags().StringVar(&fetchHandle, "handle", "", "YouTube channel handle/ID, Instagram username or profile URL (required)")
	fetchCmd.Flags().IntVar(&fetchMax, "max", 0, "Maximum items to fetch")
	fetchCmd.Flags().IntVar(&fetchPrefilter, "prefilter-limit", 0, "Items kept after sorting by engagement")
	fetchCmd.Flags().StringVarP(&fetchOutput, "out", "o", "", "Output JSON file (stdout if empty)")
	requireFlags(fetchCmd, "handle")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	platform := fetch.DetectPlatform(fetchHandle)
	if fetchPlatform != "" || platform == "" {
		var err error
		if platform, err = types.ParsePlatform(fetchPlatform); err != nil {
			return err
		}
	}
	handle := fetch.NormalizeHandle(platform, fetchHandle)
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max") {
		cfg.MaxFetch = fetchMax
	}
	if cmd.Flags().Changed("prefilter-limit") {
		cfg.PrefilterLimit = fetchPrefilter
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	fetchFn, err := svc.Fetcher(ctx, platform)
	if err != nil {
		return err
	}
	items, err := fetchFn(ctx, handle, cfg.MaxFetch)
	if err != nil {
		return fmt.Errorf("%s fetch failed: %w", platform, err)
	}
	kept := ranking.PrefilterByEngagement(items, cfg.PrefilterLimit)

	if fetchOutput != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Fetched %d items, kept %d by engagement\n", len(items), len(kept))
	}
	return writeJSON(cmd.OutOrStdout(), fetchOutput, kept)
}
