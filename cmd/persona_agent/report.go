package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/parsing"
	"github.com/jonathan/creator-persona/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a ContentCreatorInfo record as a Markdown profile",
	RunE:  runReport,
}

var (
	reportInfo     string
	reportTemplate string
	reportOutput   string
)

func init() {
	reportCmd.Flags().StringVarP(&reportInfo, "info", "i", "", "ContentCreatorInfo JSON file (required)")
	reportCmd.Flags().StringVarP(&reportTemplate, "template", "t", "", "Custom text/template file (built-in template if empty)")
	reportCmd.Flags().StringVarP(&reportOutput, "out", "o", "", "Output Markdown file (stdout if empty)")
	requireFlags(reportCmd, "info")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	info, err := parsing.ParseCreatorInfoFile(reportInfo)
	if err != nil {
		return err
	}

	if reportTemplate == "" {
		return writeText(cmd.OutOrStdout(), reportOutput, report.RenderMarkdown(info))
	}
	markdown, err := report.RenderMarkdownTemplate(info, reportTemplate)
	if err != nil {
		return err
	}
	return writeText(cmd.OutOrStdout(), reportOutput, markdown)
}
