package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"facturas/internal/config"
	"facturas/internal/ocr"
	"facturas/internal/pipeline"
	"facturas/internal/tax"
	"facturas/internal/taxconfig"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".gif": true, ".bmp": true, ".webp": true,
}

// validateInputFile checks that path is a readable, non-empty regular file within the size limit.
func validateInputFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", path).
				Msg("Invoice file not found")
			return nil, fmt.Errorf("invoice file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", path).
				Msg("Permission denied accessing file")
			return nil, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}
	if fileInfo.Size() > ocr.MaxFileSizeBytes {
		log.Error().
			Str("file", path).
			Int64("size", fileInfo.Size()).
			Int64("max_size", ocr.MaxFileSizeBytes).
			Msg("File exceeds maximum size limit")
		return nil, fmt.Errorf("file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), ocr.MaxFileSizeBytes)
	}

	return fileInfo, nil
}

// createContext creates a context with timeout that is also canceled on SIGINT/SIGTERM.
func createContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// resolveSource picks the text source for path. An explicit flag wins, then a
// non-default TEXT_SOURCE, then the file extension.
func resolveSource(flag, path string) string {
	if flag != "" {
		return flag
	}
	ext := strings.ToLower(filepath.Ext(path))
	configured := config.SourceText
	if appConfig != nil {
		configured = appConfig.TextSource
	}
	switch {
	case configured == config.SourceVision || configured == config.SourceDocumentAI:
		if ext == ".pdf" || imageExtensions[ext] {
			return configured
		}
		return ocr.KindText
	case ext == ".pdf":
		return ocr.KindPDF
	case imageExtensions[ext]:
		return ocr.KindVision
	}
	return ocr.KindText
}

// createTextSource creates the text source for kind with user-facing error messages.
func createTextSource(ctx context.Context, kind string, log zerolog.Logger) (ocr.TextSource, error) {
	source, err := ocr.NewSource(ctx, kind)
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrMissingCredentials):
			log.Error().Err(err).Msg("Google Cloud credentials not configured")
			return nil, fmt.Errorf("missing Google Cloud credentials. Please set one of:\n" +
				"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n" +
				"  GOOGLE_CREDENTIALS='<json-credentials>'\n" +
				"Original error: %w", err)
		case errors.Is(err, ocr.ErrInvalidConfiguration):
			log.Error().Err(err).Msg("Document AI configuration invalid")
			return nil, fmt.Errorf("invalid Document AI configuration. Please check your .env file:\n" +
				"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n" +
				"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n" +
				"  DOCUMENT_AI_PROCESSOR_ID - your Document AI processor ID\n" +
				"Original error: %w", err)
		case errors.Is(err, ocr.ErrUnsupportedSource):
			return nil, fmt.Errorf("unknown text source %q (use text, pdf, vision or documentai)", kind)
		}
		return nil, fmt.Errorf("failed to create text source: %w", err)
	}
	log.Debug().Str("source", kind).Msg("Text source created")
	return source, nil
}

// closeSource releases sources that hold API clients.
func closeSource(source ocr.TextSource, log zerolog.Logger) {
	if c, ok := source.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close text source")
		}
	}
}

// readText extracts the text of the file at path.
func readText(ctx context.Context, source ocr.TextSource, path string, log zerolog.Logger) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close file")
		}
	}()
	return source.ExtractText(ctx, f)
}

// loadTaxConfig loads the tax parameters, falling back to the configured file and year.
func loadTaxConfig(file string, year int, log zerolog.Logger) (*taxconfig.TaxConfig, error) {
	if file == "" && appConfig != nil {
		file = appConfig.TaxConfigFile
	}
	if year == 0 {
		year = 2025
		if appConfig != nil {
			year = appConfig.TaxYear
		}
	}

	cfg, err := taxconfig.Load(file, year)
	if err != nil {
		log.Error().Err(err).Str("file", file).Int("year", year).Msg("Failed to load tax configuration")
		return nil, fmt.Errorf("failed to load tax configuration: %w", err)
	}
	log.Debug().Int("year", cfg.Year).Str("uvt_value", cfg.UVTValue.String()).Msg("Tax configuration loaded")
	return cfg, nil
}

// handleProcessingError provides user-friendly error messages for processing failures.
func handleProcessingError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice processing failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled), errors.Is(err, ocr.ErrContextCanceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrPDFTooLarge):
		return fmt.Errorf("file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("document has more than %d pages", ocr.MaxPagesSync)
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no text found in document. Scanned files need --source vision or documentai")
	case errors.Is(err, ocr.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Please check DOCUMENT_AI_PROCESSOR_ID")
	case errors.Is(err, ocr.ErrQuotaExceeded):
		return fmt.Errorf("Google Cloud API quota exceeded. Check your project quotas in Google Cloud Console")
	case errors.Is(err, tax.ErrNegativeTax):
		return fmt.Errorf("tax computation produced a negative amount, invoice is non-compliant: %w", err)
	case errors.Is(err, pipeline.ErrValidationFailed):
		return fmt.Errorf("invoice failed validation: %w", err)
	default:
		return fmt.Errorf("invoice processing failed: %w", err)
	}
}

// writeJSON writes v as indented JSON to outputPath, or stdout when empty.
func writeJSON(v interface{}, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal output to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(jsonData)).
			Msg("Output written to file")
		return nil
	}

	if _, err := os.Stdout.Write(jsonData); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Println()
	return nil
}

// statusEmoji returns an emoji for the processing status
func statusEmoji(status pipeline.Status) string {
	switch status {
	case pipeline.StatusSuccess:
		return "✅"
	case pipeline.StatusWarning:
		return "⚠️"
	case pipeline.StatusError:
		return "❌"
	default:
		return "❓"
	}
}

// writeText writes text to outputPath, or stdout when empty.
func writeText(text, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(text), 0644); err != nil {
		log.Error().Err(err).Str("output_file", outputPath).Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", outputPath).Int("bytes", len(text)).Msg("Text written to file")
	return nil
}
