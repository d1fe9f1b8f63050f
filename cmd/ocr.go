package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"facturas/internal/logger"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [file]",
	Short: "Extract the raw text of an invoice",
	Long: `Extract text from an invoice with the selected text source and print it unchanged.
Useful to inspect what the extractor will see before processing.

Sources:
  text        - plain text file
  pdf         - text layer of a digital PDF
  vision      - Google Cloud Vision OCR (PDF up to 5 pages, or an image)
  documentai  - Google Document AI processor

Google sources require GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS;
documentai also requires GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID.`,
	Example: `  # Text layer of a digital PDF
  facturas ocr factura.pdf

  # OCR a scanned invoice and save the text
  facturas ocr escaneo.pdf --source vision -o escaneo.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().String("source", "", "Text source: text, pdf, vision or documentai")
	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	sourceFlag, _ := cmd.Flags().GetString("source")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	path := args[0]
	source := resolveSource(sourceFlag, path)

	fileInfo, err := validateInputFile(path, log)
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

	start := time.Now()
	text, err := readText(ctx, textSource, path, log)
	if err != nil {
		return handleProcessingError(err, log)
	}

	log.Info().
		Str("source", source).
		Int64("size", fileInfo.Size()).
		Int("text_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Text extraction completed")

	return writeText(text, outputPath, log)
}
