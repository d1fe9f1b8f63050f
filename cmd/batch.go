package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"facturas/internal/logger"
	"facturas/internal/ocr"
	"facturas/internal/pipeline"
	"facturas/internal/sheets"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Process every invoice in a folder and write the tax report to Google Sheets",
	Long: `Process all invoices in a folder (PDF, images and .txt files) in parallel and write
one row per invoice to a Google Sheet: type, counterparty, VAT, withholdings and
compliance status.

Text is extracted with the same source selection as the process command, then each
document runs through classification, extraction, validation and the tax computation.

Required environment variables (unless --dry-run):
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL to write results (or --sheet)

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 8)
  GOOGLE_SHEET_WORKSHEET - Worksheet name (default: Impuestos)`,
	Example: `  # Process a folder of Medellín invoices
  facturas batch ./facturas --city Medellín

  # Dry run with 4 workers, results saved as JSON
  facturas batch ./facturas --workers 4 --dry-run -o resultados.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("city", "", "City whose ICA rate applies (default: DEFAULT_CITY)")
	batchCmd.Flags().String("source", "", "Text source: text, pdf, vision or documentai (default: by extension)")
	batchCmd.Flags().String("tax-config", "", "Tax configuration YAML file (default: TAX_CONFIG_FILE or built-in)")
	batchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: BATCH_WORKERS)")
	batchCmd.Flags().String("sheet", "", "Google Sheets URL (default: GOOGLE_SHEET_URL)")
	batchCmd.Flags().String("worksheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	batchCmd.Flags().Bool("dry-run", false, "Process files but don't write to Google Sheet")
	batchCmd.Flags().StringP("output", "o", "", "Also write the results as JSON to this file")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	folderPath := args[0]
	city, _ := cmd.Flags().GetString("city")
	sourceFlag, _ := cmd.Flags().GetString("source")
	taxConfigFile, _ := cmd.Flags().GetString("tax-config")
	workers, _ := cmd.Flags().GetInt("workers")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	outputPath, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if workers <= 0 {
		workers = appConfig.BatchWorkers
	}
	if sheetURL == "" {
		sheetURL = appConfig.GoogleSheetURL
	}
	if worksheet == "" {
		worksheet = appConfig.GoogleSheetWorksheet
	}
	if !dryRun && sheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable or --sheet is required (or use --dry-run)")
	}

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	log.Info().
		Str("folder", folderPath).
		Str("city", city).
		Int("workers", workers).
		Bool("dry_run", dryRun).
		Msg("Starting batch processing")

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                       PROCESAMIENTO DE FACTURAS")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Carpeta: %s\n", folderPath)
	if city != "" {
		fmt.Printf("Ciudad: %s\n", city)
	}
	if dryRun {
		fmt.Printf("Modo: Dry Run (sin actualizar Google Sheets)\n")
	}
	fmt.Println()

	taxCfg, err := loadTaxConfig(taxConfigFile, 0, log)
	if err != nil {
		return err
	}

	ctx, cancel := createContext(30*time.Minute, log)
	defer cancel()

	files, err := findInvoiceFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find invoice files: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No se encontraron facturas en la carpeta.")
		return nil
	}

	fmt.Printf("Extrayendo texto de %d archivos con %d workers paralelos...\n", len(files), workers)
	docs, failed := extractTexts(ctx, files, sourceFlag, city, workers, log)

	fmt.Printf("Procesando %d facturas...\n", len(docs))
	fmt.Println()

	processor := pipeline.NewProcessor(taxCfg,
		pipeline.WithDefaultCity(appConfig.DefaultCity),
		pipeline.WithProgress(func(done, total int, r *pipeline.Result) {
			printProgress(done, total, r, verbose)
		}),
	)
	processed := processor.ProcessBatch(ctx, docs, workers)
	results := mergeResults(files, processed, failed)

	fmt.Println()

	counts := make(map[pipeline.Status]int)
	for _, r := range results {
		counts[r.Status]++
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULTADO")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Exitosas: %d\n", counts[pipeline.StatusSuccess])
	if n := counts[pipeline.StatusWarning]; n > 0 {
		fmt.Printf("Con advertencias: %d\n", n)
	}
	if n := counts[pipeline.StatusError]; n > 0 {
		fmt.Printf("Errores: %d\n", n)
	}
	fmt.Println()

	if outputPath != "" {
		if err := writeJSON(results, outputPath, log); err != nil {
			return err
		}
	}

	if !dryRun {
		fmt.Println("Escribiendo datos en Google Sheet...")

		sheetsService, err := sheets.NewSheetsService(ctx, sheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}

		rows := sheets.BuildReportRows(results)
		if err := sheetsService.WriteTaxReport(ctx, rows, worksheet); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}

		fmt.Printf("Hoja: %s\n", worksheet)
		fmt.Printf("Filas agregadas: %d\n", len(rows))
		fmt.Printf("URL: %s\n", sheetURL)
	}

	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("total", len(results)).
		Int("success", counts[pipeline.StatusSuccess]).
		Int("warnings", counts[pipeline.StatusWarning]).
		Int("errors", counts[pipeline.StatusError]).
		Msg("Batch processing completed")

	return nil
}

// findInvoiceFiles finds all PDF, image and text files in the folder, sorted by path.
func findInvoiceFiles(folderPath string) ([]string, error) {
	var files []string

	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		if ext == ".pdf" || ext == ".txt" || imageExtensions[ext] {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)
	return files, err
}

// extractTexts reads every file with a bounded number of concurrent sources. Files whose
// text could not be extracted are returned in failed, keyed by path.
func extractTexts(ctx context.Context, files []string, sourceFlag, city string, workers int, log zerolog.Logger) ([]pipeline.Document, map[string]error) {
	texts := make([]string, len(files))
	errs := make([]error, len(files))
	sources := make(map[string]ocr.TextSource)

	// One source per kind, shared by every file of that kind.
	for _, path := range files {
		kind := resolveSource(sourceFlag, path)
		if _, ok := sources[kind]; ok {
			continue
		}
		source, err := createTextSource(ctx, kind, log)
		if err != nil {
			log.Error().Err(err).Str("source", kind).Msg("Text source unavailable")
			sources[kind] = nil
			continue
		}
		sources[kind] = source
	}
	defer func() {
		for _, source := range sources {
			if source != nil {
				closeSource(source, log)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			kind := resolveSource(sourceFlag, path)
			source := sources[kind]
			if source == nil {
				errs[i] = fmt.Errorf("%w: %s", ocr.ErrUnsupportedSource, kind)
				return nil
			}
			if _, err := validateInputFile(path, log); err != nil {
				errs[i] = err
				return nil
			}
			texts[i], errs[i] = readText(gctx, source, path, log)
			return nil
		})
	}
	_ = g.Wait()

	var docs []pipeline.Document
	failed := make(map[string]error)
	for i, path := range files {
		if errs[i] != nil {
			failed[path] = errs[i]
			log.Warn().Err(errs[i]).Str("file", path).Msg("Text extraction failed")
			continue
		}
		docs = append(docs, pipeline.Document{Name: path, Text: texts[i], City: city})
	}
	return docs, failed
}

// mergeResults restores the original file order, adding an error result for each file
// whose text could not be extracted.
func mergeResults(files []string, processed []*pipeline.Result, failed map[string]error) []*pipeline.Result {
	byName := make(map[string]*pipeline.Result, len(processed))
	for _, r := range processed {
		byName[r.Document] = r
	}

	results := make([]*pipeline.Result, 0, len(files))
	for _, path := range files {
		r, ok := byName[path]
		if !ok {
			r = &pipeline.Result{Document: path, Status: pipeline.StatusError, Error: failed[path]}
		}
		r.Document = filepath.Base(path)
		results = append(results, r)
	}
	return results
}

func printProgress(done, total int, r *pipeline.Result, verbose bool) {
	fmt.Printf("[%d/%d] %s - %s", done, total, filepath.Base(r.Document), statusEmoji(r.Status))
	switch {
	case r.Error != nil:
		fmt.Printf(" (%s)", r.Error.Error())
	case r.Breakdown != nil:
		fmt.Printf(" (%s, IVA $%s)", r.InvoiceType(), r.Breakdown.VATAmount.StringFixed(2))
	}
	fmt.Println()

	if verbose && r.Record != nil {
		fmt.Printf("        %s | %s | total $%s\n",
			r.Record.Date, r.Record.CounterpartyName, r.Record.DeclaredTotal.StringFixed(2))
		for _, w := range r.Validation.Warnings() {
			fmt.Printf("        %s\n", w)
		}
	}
}
