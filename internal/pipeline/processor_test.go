package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/internal/taxconfig"
	"facturas/internal/validate"
	"facturas/pkg/models"
)

const saleText = `FACTURA DE VENTA No. FV-1001
Fecha: 15-01-2025
Cliente: Empresa Ejemplo S.A.S.
NIT: 900.123.456-7

Descripción    Cantidad    Valor Unitario    Total
Servicio de consultoría    2    500.00    1,000.00
Soporte técnico    1    500.00    500.00

Subtotal: 1,500.00
Total: $1,500.00`

const utilityText = `EMPRESAS PUBLICAS DE MEDELLIN E.S.P.
Servicios públicos domiciliarios
Empresa: EPM E.S.P.
Fecha de expedición: 05/02/2025
Periodo facturado: enero 2025
Total a pagar: $18.226,89`

var processedAt = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestProcessor(opts ...Option) *Processor {
	opts = append([]Option{WithClock(func() time.Time { return processedAt })}, opts...)
	p := NewProcessor(taxconfig.Default2025(), opts...)
	var mu sync.Mutex
	n := 0
	p.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("inv-%d", n)
	}
	return p
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name        string
		doc         Document
		status      Status
		invoiceType models.InvoiceType
		vatAmount   string
		compliance  models.ComplianceStatus
	}{
		{
			name:        "sale invoice",
			doc:         Document{Name: "fv-1001.txt", Text: saleText, City: "Bogotá"},
			status:      StatusSuccess,
			invoiceType: models.InvoiceTypeSale,
			vatAmount:   "285.00",
			compliance:  models.StatusCompliant,
		},
		{
			name:        "utility bill",
			doc:         Document{Name: "epm.txt", Text: utilityText, City: "Medellín"},
			status:      StatusSuccess,
			invoiceType: models.InvoiceTypeUtilityService,
			vatAmount:   "3463.11",
			compliance:  models.StatusCompliant,
		},
		{
			name:        "unknown city needs review",
			doc:         Document{Name: "fv-1001.txt", Text: saleText, City: "Springfield"},
			status:      StatusWarning,
			invoiceType: models.InvoiceTypeSale,
			vatAmount:   "285.00",
			compliance:  models.StatusReviewRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestProcessor().Process(context.Background(), tt.doc)
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.Equal(t, "inv-1", result.ID)
			assert.Equal(t, processedAt, result.ProcessedAt)
			assert.Equal(t, tt.doc.Name, result.Document)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.invoiceType, result.InvoiceType())
			assert.True(t, result.Validation.Valid)
			assert.NoError(t, result.Error)

			require.NotNil(t, result.Breakdown)
			assert.Equal(t, tt.vatAmount, result.Breakdown.VATAmount.StringFixed(2))
			assert.Equal(t, tt.compliance, result.Breakdown.ComplianceStatus)
			assert.True(t, result.Breakdown.TotalWithholding().IsZero())
		})
	}
}

func TestProcessUtilityRecord(t *testing.T) {
	result, err := newTestProcessor().Process(context.Background(), Document{Name: "epm.txt", Text: utilityText, City: "Medellín"})
	require.NoError(t, err)

	rec := result.Record
	assert.Equal(t, "2025-02-05", rec.Date)
	assert.Equal(t, "EPM E.S.P.", rec.CounterpartyName)
	assert.Equal(t, "18226.89", rec.DeclaredTotal.StringFixed(2))
	require.Len(t, rec.Items, 1)
	assert.Equal(t, models.CategoryUtility, rec.Items[0].Category)
	assert.Equal(t, models.ConfidenceDefaulted, rec.ConfidenceOf(models.FieldItems))
}

func TestProcessInvalidDocument(t *testing.T) {
	result, err := newTestProcessor().Process(context.Background(), Document{Name: "blank.txt", Text: "   \n\n"})
	require.NoError(t, err)

	assert.Equal(t, StatusError, result.Status)
	assert.False(t, result.Validation.Valid)
	assert.Contains(t, result.Validation.Errors, fmt.Sprintf(validate.MsgNonPositiveTotal, "0.00"))
	assert.NotContains(t, result.Validation.Errors, validate.MsgEmptyItems)
	assert.Nil(t, result.Breakdown)
	assert.ErrorIs(t, result.Error, ErrValidationFailed)
	assert.True(t, result.Classification.LowConfidence)
}

func TestProcessDefaultCity(t *testing.T) {
	result, err := newTestProcessor(WithDefaultCity("Cali")).Process(context.Background(), Document{Name: "a", Text: saleText})
	require.NoError(t, err)

	assert.Equal(t, "Cali", result.City)
	assert.Equal(t, "Cali", result.Breakdown.City)
	assert.Equal(t, models.StatusCompliant, result.Breakdown.ComplianceStatus)
}

func TestProcessCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestProcessor().Process(ctx, Document{Name: "a", Text: saleText})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	p := newTestProcessor(WithMetrics(metrics))

	_, err := p.Process(context.Background(), Document{Name: "sale", Text: saleText, City: "Bogotá"})
	require.NoError(t, err)
	_, err = p.Process(context.Background(), Document{Name: "blank", Text: ""})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.processed.WithLabelValues("sale", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.processed.WithLabelValues("sale", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.validationFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.compliance.WithLabelValues("compliant")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.engineFailures))
	count, err := testutil.GatherAndCount(registry, "facturas_invoices_processed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProcessBatch(t *testing.T) {
	var docs []Document
	for i := 0; i < 7; i++ {
		text, city := saleText, "Bogotá"
		if i%2 == 1 {
			text, city = utilityText, "Medellín"
		}
		if i == 4 {
			text = ""
		}
		docs = append(docs, Document{Name: fmt.Sprintf("doc-%d", i), Text: text, City: city})
	}

	var calls []int
	p := newTestProcessor(WithProgress(func(done, total int, r *Result) {
		assert.Equal(t, len(docs), total)
		calls = append(calls, done)
	}))

	results := p.ProcessBatch(context.Background(), docs, 3)
	require.Len(t, results, len(docs))
	for i, r := range results {
		assert.Equal(t, docs[i].Name, r.Document)
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, StatusError, results[4].Status)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, models.InvoiceTypeUtilityService, results[1].InvoiceType())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, calls)
}

func TestProcessBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []Document{{Name: "a", Text: saleText}, {Name: "b", Text: saleText}}
	results := newTestProcessor().ProcessBatch(ctx, docs, 2)

	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, docs[i].Name, r.Document)
		assert.Equal(t, StatusError, r.Status)
		assert.ErrorIs(t, r.Error, ErrCanceled)
		assert.True(t, errors.Is(r.Error, context.Canceled))
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	assert.Empty(t, newTestProcessor().ProcessBatch(context.Background(), nil, 4))
}
