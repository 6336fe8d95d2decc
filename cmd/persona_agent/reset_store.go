package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/creator-persona/internal/types"
)

var resetStoreCmd = &cobra.Command{
	Use:   "reset-store",
	Short: "Clear a platform's vector store",
	Long:  "Removes every stored document from one platform's store, or from both when --platform is omitted. Returns once the reset has completed.",
	RunE:  runResetStore,
}

var resetStorePlatform string

func init() {
	resetStoreCmd.Flags().StringVarP(&resetStorePlatform, "platform", "p", "", "Platform to reset (both if empty)")
	rootCmd.AddCommand(resetStoreCmd)
}

func runResetStore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	platforms := types.Platforms
	if resetStorePlatform != "" {
		p, err := types.ParsePlatform(resetStorePlatform)
		if err != nil {
			return err
		}
		platforms = []types.Platform{p}
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

	for _, p := range platforms {
		store, err := svc.Store(ctx, p)
		if err != nil {
			return err
		}
		if err := store.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset %s: %w", store.Namespace(), err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", store.Namespace())
	}
	return nil
}
