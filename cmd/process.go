package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"facturas/internal/logger"
	"facturas/internal/pipeline"
	"facturas/pkg/services"
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Classify, extract, validate and compute taxes for one invoice",
	Long: `Process a single invoice through every stage: text normalization, classification
as sale, purchase or utility service, field extraction, structural validation and the
Colombian tax computation.

The text source is chosen from --source, then TEXT_SOURCE, then the file extension
(.pdf uses the PDF text layer, images use Google Cloud Vision, anything else is read
as plain text).

The output is the full processing result as JSON, or with --payload the invoice
creation payload for the accounting service.`,
	Example: `  # Process a text invoice for Bogotá
  facturas process factura.txt --city Bogotá

  # Scanned PDF through Document AI, result saved to a file
  facturas process factura.pdf --source documentai -o resultado.json

  # Posting payload for an existing contact
  facturas process factura.pdf --payload --contact-id 42`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("city", "", "City whose ICA rate applies (default: DEFAULT_CITY)")
	processCmd.Flags().String("source", "", "Text source: text, pdf, vision or documentai")
	processCmd.Flags().String("tax-config", "", "Tax configuration YAML file (default: TAX_CONFIG_FILE or built-in)")
	processCmd.Flags().Int("year", 0, "Fiscal year of the built-in tax parameters (default: TAX_YEAR)")
	processCmd.Flags().Bool("payload", false, "Output the accounting posting payload instead of the result")
	processCmd.Flags().String("contact-id", "", "Accounting contact ID for the payload")
	processCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	processCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	city, _ := cmd.Flags().GetString("city")
	sourceFlag, _ := cmd.Flags().GetString("source")
	taxConfigFile, _ := cmd.Flags().GetString("tax-config")
	year, _ := cmd.Flags().GetInt("year")
	asPayload, _ := cmd.Flags().GetBool("payload")
	contactID, _ := cmd.Flags().GetString("contact-id")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	path := args[0]
	source := resolveSource(sourceFlag, path)

	log.Info().
		Str("file", path).
		Str("source", source).
		Str("city", city).
		Msg("Starting invoice processing")

	if _, err := validateInputFile(path, log); err != nil {
		return err
	}

	taxCfg, err := loadTaxConfig(taxConfigFile, year, log)
	if err != nil {
		return err
	}

	ctx, cancel := createContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	textSource, err := createTextSource(ctx, source, log)
	if err != nil {
		return err
	}
	defer closeSource(textSource, log)

	text, err := readText(ctx, textSource, path, log)
	if err != nil {
		return handleProcessingError(err, log)
	}

	processor := pipeline.NewProcessor(taxCfg, pipeline.WithDefaultCity(appConfig.DefaultCity))
	result, err := processor.Process(ctx, pipeline.Document{
		Name: filepath.Base(path),
		Text: text,
		City: city,
	})
	if err != nil && result == nil {
		return handleProcessingError(err, log)
	}

	if asPayload && result.Error == nil {
		payload, perr := services.BuildPostingPayload(result.Record, result.Breakdown, contactID)
		if perr != nil {
			return handleProcessingError(perr, log)
		}
		if werr := writeJSON(payload, outputPath, log); werr != nil {
			return werr
		}
	} else if werr := writeJSON(result, outputPath, log); werr != nil {
		return werr
	}

	if result.Error != nil {
		return handleProcessingError(result.Error, log)
	}

	log.Info().
		Str("invoice_id", result.ID).
		Str("invoice_type", string(result.InvoiceType())).
		Str("status", string(result.Status)).
		Msg("Invoice processing completed")
	return nil
}
