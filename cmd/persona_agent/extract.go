package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/extraction"
	"github.com/jonathan/creator-persona/internal/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a ContentCreatorInfo record from a platform's vector store",
	RunE:  runExtract,
}

var (
	extractPlatform string
	extractCreator  string
	extractOutput   string
	extractPass     string
)

func init() {
	extractCmd.Flags().StringVarP(&extractPlatform, "platform", "p", "", "Platform: youtube or instagram (required)")
	extractCmd.Flags().StringVarP(&extractCreator, "creator", "c", "", "Creator name used in the questions")
	extractCmd.Flags().StringVarP(&extractOutput, "out", "o", "", "Output ContentCreatorInfo JSON file (stdout if empty)")
	extractCmd.Flags().StringVar(&extractPass, "pass", "", "Run one pass only: initial-info or follow-up-info (both if empty)")
	requireFlags(extractCmd, "platform")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	platform, err := types.ParsePlatform(extractPlatform)
	if err != nil {
		return err
	}
	pass, err := parsePass(extractPass)
	if err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	store, err := svc.Store(ctx, platform)
	if err != nil {
		return err
	}
	extractor := extraction.NewExtractor(store, extractCreator, svc.logger)
	var info *types.ContentCreatorInfo
	if pass == "" {
		info, err = extractor.Extract(ctx, platform)
	} else {
		info, err = extractor.ExtractPass(ctx, platform, pass)
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), extractOutput, info)
}

func parsePass(s string) (extraction.Pass, error) {
	if s == "" {
		return "", nil
	}
	for _, p := range extraction.Passes {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown pass %q (want %s or %s)", s, extraction.PassInitial, extraction.PassFollowUp)
}
