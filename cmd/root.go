package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"facturas/internal/config"
	"facturas/internal/logger"
)

var version = "1.0.0"

// appConfig is set by Execute before any command runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "facturas",
	Short: "Colombian invoice classification, extraction and tax computation",
	Long: `facturas turns raw invoice text into a structured record and a Colombian tax
breakdown: VAT by category, retención en la fuente, reteIVA and reteICA gated by
UVT thresholds, with a compliance status for each invoice.

Text can come from plain text files, the text layer of a PDF, Google Cloud Vision
OCR or Google Document AI.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the loaded configuration and returns the process exit
// code. A configuration error is reported for every command except help.
func Execute(cfg *config.Config, cfgErr error) int {
	log := logger.WithComponent("cmd")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgErr != nil {
			return fmt.Errorf("invalid configuration: %w", cfgErr)
		}
		appConfig = cfg
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
