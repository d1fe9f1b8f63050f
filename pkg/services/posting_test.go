package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/pkg/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func saleRecord() *models.InvoiceRecord {
	return &models.InvoiceRecord{
		Date:             "2025-01-15",
		CounterpartyName: "Empresa Ejemplo S.A.S.",
		Items: []models.InvoiceLineItem{
			{Description: "Consultoría", Quantity: d("2"), UnitPrice: d("500"), Category: models.CategoryService},
			{Description: "Arroz", Quantity: d("1"), UnitPrice: d("500"), Category: models.CategoryFood},
		},
		DeclaredTotal: d("1500"),
		InvoiceType:   models.InvoiceTypeSale,
	}
}

func TestBuildPostingPayload(t *testing.T) {
	breakdown := &models.TaxBreakdown{
		TaxableBase:       d("1500"),
		VATAmount:         d("190"),
		IncomeWithholding: d("60"),
		City:              "Bogotá",
		ComplianceStatus:  models.StatusCompliant,
		VATLines: []models.VATLine{
			{Category: models.CategoryService, Base: d("1000"), Rate: d("0.19"), Amount: d("190")},
			{Category: models.CategoryFood, Base: d("500"), Rate: d("0"), Amount: d("0")},
		},
		Withholdings: []models.Withholding{
			{Kind: models.WithholdingIncome, Base: d("1500"), Rate: d("0.04"), Applied: true, Amount: d("60")},
			{Kind: models.WithholdingVAT, Base: d("190"), Rate: d("0.15"), Applied: false},
		},
	}

	payload, err := BuildPostingPayload(saleRecord(), breakdown, "")
	require.NoError(t, err)

	assert.Equal(t, "2025-01-15", payload.Date)
	assert.Equal(t, "2025-02-14", payload.DueDate)
	assert.Equal(t, ClientRef{Name: "Empresa Ejemplo S.A.S."}, payload.Client)
	assert.Equal(t, "sale", payload.Type)
	assert.True(t, payload.Total.Equal(d("1500")))

	require.Len(t, payload.Items, 2)
	require.Len(t, payload.Items[0].Tax, 1)
	assert.True(t, payload.Items[0].Tax[0].Percentage.Equal(d("19")))
	assert.True(t, payload.Items[0].Tax[0].Amount.Equal(d("190")))
	assert.Empty(t, payload.Items[1].Tax)

	require.Len(t, payload.Retentions, 1)
	assert.Equal(t, "Retefuente", payload.Retentions[0].Name)
	assert.True(t, payload.Retentions[0].Percentage.Equal(d("4")))

	require.NotNil(t, payload.Accounting)
	assert.Equal(t, "2025-01", payload.Accounting.Period)
	assert.True(t, payload.Accounting.TotalDebit().Equal(d("1690")))
	assert.True(t, payload.Accounting.TotalCredit().Equal(d("1690")))

	assert.Equal(t,
		"Base gravable: 1500.00 | IVA: 190.00 | Retefuente: 60.00 | ReteIVA: 0.00 | ReteICA: 0.00 | Ciudad: Bogotá | Estado: compliant",
		payload.Observations)
}

func TestBuildPostingPayloadClient(t *testing.T) {
	tests := []struct {
		name         string
		counterparty string
		contactID    string
		want         ClientRef
	}{
		{"contact id wins", "Empresa Ejemplo S.A.S.", " 42 ", ClientRef{ID: "42"}},
		{"name fallback", "Ana Gómez", "", ClientRef{Name: "Ana Gómez"}},
		{"final consumer", "  ", "", ClientRef{Name: FinalConsumer}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := saleRecord()
			rec.CounterpartyName = tt.counterparty
			payload, err := BuildPostingPayload(rec, nil, tt.contactID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload.Client)
		})
	}
}

func TestBuildPostingPayloadWithoutBreakdown(t *testing.T) {
	payload, err := BuildPostingPayloadWithOptions(saleRecord(), nil, "7", PostingOptions{PaymentTermDays: 15})
	require.NoError(t, err)

	assert.Equal(t, "2025-01-30", payload.DueDate)
	assert.Equal(t, "Impuestos no calculados", payload.Observations)
	assert.Empty(t, payload.Retentions)
	assert.Nil(t, payload.Accounting)
	for _, item := range payload.Items {
		assert.Empty(t, item.Tax)
	}
}

func TestBuildPostingPayloadErrors(t *testing.T) {
	_, err := BuildPostingPayload(nil, nil, "")
	assert.ErrorIs(t, err, ErrMissingRecord)

	rec := saleRecord()
	rec.Date = "2025-02-31"
	_, err = BuildPostingPayload(rec, nil, "")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
