package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/schemas"
	"github.com/jonathan/creator-persona/internal/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank fetched items by relevance to the creator's life and business",
	Long:  "Scores every item of a ContentItem JSON list with the LLM judge and writes the top --top-k as RankedItems JSON.",
	RunE:  runRank,
}

var (
	rankItems   string
	rankCreator string
	rankTopK    int
	rankOutput  string
)

func init() {
	rankCmd.Flags().StringVarP(&rankItems, "items", "i", "", "Path to ContentItem JSON list from fetch (required)")
	rankCmd.Flags().StringVarP(&rankCreator, "creator", "c", "", "Creator name used in the relevance prompt (required)")
	rankCmd.Flags().IntVarP(&rankTopK, "top-k", "k", 0, "Number of items to keep")
	rankCmd.Flags().StringVarP(&rankOutput, "out", "o", "", "Output RankedItems JSON file (stdout if empty)")
	requireFlags(rankCmd, "items", "creator")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	data, err := os.ReadFile(rankItems)
	if err != nil {
		return fmt.Errorf("failed to read items file %s: %w", rankItems, err)
	}
	if err := schemas.ValidateContentItems(data); err != nil {
		return fmt.Errorf("invalid items file %s: %w", rankItems, err)
	}
	var items []types.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal items JSON: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("items file %s is empty", rankItems)
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("top-k") {
		cfg.TopK = rankTopK
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ranker, err := svc.Ranker(ctx, rankCreator)
	if err != nil {
		return err
	}
	ranked, err := ranker.Rank(ctx, items, cfg.TopK)
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	return writeJSON(cmd.OutOrStdout(), rankOutput, types.RankedItems{
		Platform: items[0].Platform,
		Creator:  rankCreator,
		Items:    ranked,
	})
}
