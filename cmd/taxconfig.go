package cmd

import (
	"github.com/spf13/cobra"

	"facturas/internal/logger"
)

var taxConfigCmd = &cobra.Command{
	Use:   "taxconfig",
	Short: "Print the tax parameters in effect",
	Long: `Load and validate the tax parameters and print them as JSON: UVT value, VAT rate per
category, withholding thresholds and the ICA rate per city.

Parameters come from --file, then TAX_CONFIG_FILE, then a taxconfig.yaml in the
working directory, ./config or /etc/facturas, and otherwise the built-in table for
--year. TAX_UVT_VALUE overrides the UVT value.`,
	Example: `  # Built-in 2025 parameters
  facturas taxconfig --year 2025

  # Check a custom file
  facturas taxconfig --file impuestos-2025.yaml`,
	Args: cobra.NoArgs,
	RunE: runTaxConfig,
}

func init() {
	rootCmd.AddCommand(taxConfigCmd)

	taxConfigCmd.Flags().Int("year", 0, "Fiscal year (default: TAX_YEAR)")
	taxConfigCmd.Flags().String("file", "", "Tax configuration YAML file")
	taxConfigCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runTaxConfig(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("taxconfig")

	year, _ := cmd.Flags().GetInt("year")
	file, _ := cmd.Flags().GetString("file")
	outputPath, _ := cmd.Flags().GetString("output")

	cfg, err := loadTaxConfig(file, year, log)
	if err != nil {
		return err
	}
	return writeJSON(cfg, outputPath, log)
}
