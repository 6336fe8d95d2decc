// Package main provides the persona_agent CLI: research a content creator
// across YouTube and Instagram and render a persona and profile report.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/config"
)

var (
	rootConfigPath string
	rootVerbose    bool
	rootLogLevel   string
	rootLogFile    string
)

var rootCmd = &cobra.Command{
	Use:   "persona_agent",
	Short: "Content creator research and persona generation",
	Long: `persona_agent fetches a creator's YouTube videos and Instagram posts, ranks them by relevance,
transcribes the best ones into a vector store, extracts a structured profile and renders a persona
prompt and a Markdown report.

Configuration is layered: built-in defaults, then environment variables (.env is loaded if present),
then the --config JSON file, then command-line flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to config.json file (values can be overridden by flags)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed progress information")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&rootLogFile, "log-file", "", "Write logs to this file instead of stderr")
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
