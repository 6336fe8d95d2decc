package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/parsing"
	"github.com/jonathan/creator-persona/internal/persona"
)

var renderPersonaCmd = &cobra.Command{
	Use:   "render-persona",
	Short: "Write a persona prompt for a ContentCreatorInfo record",
	Long:  "Asks the LLM to write a persona in the style of --style (or the built-in example) from a ContentCreatorInfo record.",
	RunE:  runRenderPersona,
}

var (
	personaInfo   string
	personaStyle  string
	personaOutput string
)

func init() {
	renderPersonaCmd.Flags().StringVarP(&personaInfo, "info", "i", "", "ContentCreatorInfo JSON file (required)")
	renderPersonaCmd.Flags().StringVarP(&personaStyle, "style", "s", "", "Example persona whose style is imitated")
	renderPersonaCmd.Flags().StringVarP(&personaOutput, "out", "o", "", "Output text file (stdout if empty)")
	requireFlags(renderPersonaCmd, "info")

	rootCmd.AddCommand(renderPersonaCmd)
}

func runRenderPersona(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	info, err := parsing.ParseCreatorInfoFile(personaInfo)
	if err != nil {
		return err
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("style") {
		cfg.StyleTemplate = personaStyle
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	style, err := persona.LoadStyleTemplate(cfg.StyleTemplate)
	if err != nil {
		return err
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	renderer, err := svc.Persona(ctx)
	if err != nil {
		return err
	}
	text, err := renderer.Render(ctx, info, style)
	if err != nil {
		return fmt.Errorf("persona rendering failed: %w", err)
	}
	return writeText(cmd.OutOrStdout(), personaOutput, text+"\n")
}
