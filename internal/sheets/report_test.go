package sheets

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/internal/pipeline"
	"facturas/internal/validate"
	"facturas/pkg/models"
)

func TestBuildReportRows(t *testing.T) {
	processedAt := time.Date(2025, time.March, 1, 9, 5, 0, 0, time.UTC)
	results := []*pipeline.Result{
		{
			ID:          "inv-1",
			Document:    "fv-1001.pdf",
			City:        "Bogotá",
			ProcessedAt: processedAt,
			Record: &models.InvoiceRecord{
				Date:             "2025-01-15",
				CounterpartyName: "Empresa Ejemplo S.A.S.",
				DeclaredTotal:    decimal.RequireFromString("1500"),
				InvoiceType:      models.InvoiceTypeSale,
			},
			Validation: validate.Result{Valid: true},
			Breakdown: &models.TaxBreakdown{
				TaxableBase:      decimal.RequireFromString("1500"),
				TotalUVT:         decimal.RequireFromString("0.03"),
				VATRate:          decimal.RequireFromString("0.19"),
				VATAmount:        decimal.RequireFromString("285"),
				ComplianceStatus: models.StatusCompliant,
			},
			Status: pipeline.StatusSuccess,
		},
		{
			ID:          "inv-2",
			Document:    "blank.txt",
			ProcessedAt: processedAt,
			Record:      &models.InvoiceRecord{Date: "2025-03-01", InvoiceType: models.InvoiceTypeSale},
			Validation: validate.Result{
				Valid:  false,
				Errors: []string{validate.MsgEmptyItems, validate.MsgEmptyCounterparty},
			},
			Status: pipeline.StatusError,
			Error:  pipeline.ErrValidationFailed,
		},
		{
			Document: "late.pdf",
			Status:   pipeline.StatusError,
			Error:    errors.New("canceled"),
		},
	}

	rows := BuildReportRows(results)
	require.Len(t, rows, 3)

	assert.Equal(t, ReportRow{
		Filename:     "fv-1001.pdf",
		ID:           "inv-1",
		Date:         "15/01/2025",
		Type:         "Venta",
		Counterparty: "Empresa Ejemplo S.A.S.",
		City:         "Bogotá",
		TaxableBase:  1500,
		VATRate:      0.19,
		VAT:          285,
		Total:        1500,
		TotalUVT:     0.03,
		Status:       "success",
		Compliance:   "compliant",
		ProcessedAt:  "01/03/2025 09:05:00",
	}, rows[0])

	assert.Equal(t, "error", rows[1].Status)
	assert.Equal(t, validate.MsgEmptyItems+"; "+validate.MsgEmptyCounterparty, rows[1].Notes)
	assert.Empty(t, rows[1].Compliance)

	assert.Equal(t, "late.pdf", rows[2].Filename)
	assert.Equal(t, "Error: canceled", rows[2].Notes)
	assert.Empty(t, rows[2].ProcessedAt)
}

func TestReportRowValuesMatchHeaders(t *testing.T) {
	assert.Len(t, ReportRow{}.Values(), len(ReportHeaders))
	assert.Equal(t, lastColumn, string(rune('A'+len(ReportHeaders)-1)))
}

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := ExtractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9", id)

	_, err = ExtractSpreadsheetID("https://example.com/sheet")
	assert.Error(t, err)
}
