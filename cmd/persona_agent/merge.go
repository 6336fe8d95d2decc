package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/merge"
	"github.com/jonathan/creator-persona/internal/parsing"
	"github.com/jonathan/creator-persona/internal/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge ContentCreatorInfo records into one",
	Long:  "Merges records left to right: the first real value wins for names and language, list entries are unioned without duplicates and the business with the longest description is kept.",
	RunE:  runMerge,
}

var (
	mergeInputs []string
	mergeOutput string
)

func init() {
	mergeCmd.Flags().StringSliceVarP(&mergeInputs, "in", "i", nil, "ContentCreatorInfo JSON files, in priority order (required)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "out", "o", "", "Output JSON file (stdout if empty)")
	requireFlags(mergeCmd, "in")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	records := make([]*types.ContentCreatorInfo, 0, len(mergeInputs))
	for _, path := range mergeInputs {
		info, err := parsing.ParseCreatorInfoFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		records = append(records, info)
	}
	return writeJSON(cmd.OutOrStdout(), mergeOutput, merge.MergeAll(records...))
}
