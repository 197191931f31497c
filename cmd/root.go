package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veridian-labs/docextract/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "docextract",
	Short: "LLM-driven structured extraction from multi-page documents",
	Long:  "Segments documents to fit generator limits, prompts an LLM per segment, recovers structure from whatever comes back, and merges the pieces into one record.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
