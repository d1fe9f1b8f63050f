package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"TAX_CONFIG_FILE", "TAX_YEAR", "DEFAULT_CITY", "TEXT_SOURCE", "BATCH_WORKERS", "HTTP_ADDR",
		"GOOGLE_CLOUD_PROJECT", "GOOGLE_CLOUD_LOCATION", "DOCUMENT_AI_PROCESSOR_ID",
		"GOOGLE_SHEET_URL", "GOOGLE_SHEET_WORKSHEET", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2025, cfg.TaxYear)
	assert.Equal(t, SourceText, cfg.TextSource)
	assert.Equal(t, 8, cfg.BatchWorkers)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "Impuestos", cfg.GoogleSheetWorksheet)
	assert.Equal(t, "info", cfg.GetLoggerConfig().Level)
	assert.Error(t, cfg.RequireSheet())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "overrides",
			env:  map[string]string{"TAX_YEAR": "2026", "BATCH_WORKERS": "2", "DEFAULT_CITY": "Medellín", "TEXT_SOURCE": "pdf"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2026, cfg.TaxYear)
				assert.Equal(t, 2, cfg.BatchWorkers)
				assert.Equal(t, "Medellín", cfg.DefaultCity)
				assert.Equal(t, SourcePDF, cfg.TextSource)
			},
		},
		{
			name:    "unknown source",
			env:     map[string]string{"TEXT_SOURCE": "fax"},
			wantErr: "TEXT_SOURCE",
		},
		{
			name:    "non-numeric workers",
			env:     map[string]string{"BATCH_WORKERS": "many"},
			wantErr: "BATCH_WORKERS must be an integer",
		},
		{
			name:    "zero workers",
			env:     map[string]string{"BATCH_WORKERS": "0"},
			wantErr: "BATCH_WORKERS must be positive",
		},
		{
			name:    "document ai without processor",
			env:     map[string]string{"TEXT_SOURCE": "documentai", "GOOGLE_CLOUD_PROJECT": "demo"},
			wantErr: "DOCUMENT_AI_PROCESSOR_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
