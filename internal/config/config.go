package config

import (
	"fmt"
	"os"
	"strconv"

	"facturas/internal/logger"
)

// Text sources accepted by TEXT_SOURCE.
const (
	SourceText       = "text"
	SourcePDF        = "pdf"
	SourceVision     = "vision"
	SourceDocumentAI = "documentai"
)

type Config struct {
	// Tax configuration
	TaxConfigFile string
	TaxYear       int
	DefaultCity   string

	// Processing
	TextSource   string
	BatchWorkers int
	HTTPAddr     string

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	taxYear, err := getEnvInt("TAX_YEAR", 2025)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	workers, err := getEnvInt("BATCH_WORKERS", 8)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config := &Config{
		TaxConfigFile:         getEnv("TAX_CONFIG_FILE", ""),
		TaxYear:               taxYear,
		DefaultCity:           getEnv("DEFAULT_CITY", ""),
		TextSource:            getEnv("TEXT_SOURCE", SourceText),
		BatchWorkers:          workers,
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Impuestos"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.TextSource {
	case SourceText, SourcePDF, SourceVision, SourceDocumentAI:
	default:
		return fmt.Errorf("TEXT_SOURCE must be one of text, pdf, vision, documentai, got %q", c.TextSource)
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.BatchWorkers)
	}
	if c.TextSource == SourceDocumentAI {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai source")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai source")
		}
	}
	return nil
}

// RequireSheet reports whether the Google Sheets export is configured.
func (c *Config) RequireSheet() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
