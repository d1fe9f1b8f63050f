package extract

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturas/internal/classify"
	"facturas/internal/normalize"
	"facturas/internal/tax"
	"facturas/internal/taxconfig"
	"facturas/internal/validate"
	"facturas/pkg/models"
)

const saleInvoice = `FACTURA DE VENTA No. FV-1001
Fecha: 15-01-2025
Cliente: Empresa Ejemplo S.A.S.
NIT: 900.123.456-7

Descripción    Cantidad    Valor Unitario    Total
Servicio de consultoría    2    500.00    1,000.00
Soporte técnico    1    500.00    500.00

Subtotal: 1,500.00
Total: $1,500.00`

func fixedClock() time.Time {
	return time.Date(2025, time.March, 1, 10, 30, 0, 0, time.UTC)
}

func newTestExtractor() *Extractor {
	return New(WithClock(fixedClock))
}

func TestExtractSaleInvoice(t *testing.T) {
	e := newTestExtractor().Extract(normalize.Normalize(saleInvoice), models.InvoiceTypeSale)

	assert.Equal(t, extracted("2025-01-15"), e.Date)
	assert.Equal(t, extracted("Empresa Ejemplo S.A.S."), e.Counterparty)
	assert.Equal(t, models.ConfidenceExtracted, e.DeclaredTotal.Confidence)
	assert.Equal(t, "1500.00", e.DeclaredTotal.Value.StringFixed(2))

	require.Equal(t, models.ConfidenceExtracted, e.Items.Confidence)
	require.Len(t, e.Items.Value, 2)
	assert.Equal(t, "Servicio de consultoría", e.Items.Value[0].Description)
	assert.True(t, e.Items.Value[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, e.Items.Value[0].UnitPrice.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, models.CategoryService, e.Items.Value[0].Category)
	assert.True(t, e.Items.Value[1].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, e.Items.Value[1].UnitPrice.Equal(decimal.NewFromInt(500)))
}

func TestExtractDefaults(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		invoiceType  models.InvoiceType
		date         Field[string]
		counterparty Field[string]
	}{
		{
			name:         "no date uses processing date",
			text:         "Cliente: Juan Pérez\nTotal: 100.00",
			invoiceType:  models.InvoiceTypeSale,
			date:         defaulted("2025-03-01"),
			counterparty: extracted("Juan Pérez"),
		},
		{
			name:         "no counterparty uses placeholder",
			text:         "Fecha de emisión: 02/01/2025\nTotal: 100.00",
			invoiceType:  models.InvoiceTypePurchase,
			date:         extracted("2025-01-02"),
			counterparty: defaulted("Proveedor General"),
		},
		{
			name:         "label for another role is ignored",
			text:         "Fecha: 02/01/25\nCliente: Juan Pérez",
			invoiceType:  models.InvoiceTypePurchase,
			date:         extracted("2025-01-02"),
			counterparty: defaulted("Proveedor General"),
		},
		{
			name:         "impossible date is not extracted",
			text:         "Fecha: 31-02-2025\nSeñor(es): Ana Gómez",
			invoiceType:  models.InvoiceTypeSale,
			date:         defaulted("2025-03-01"),
			counterparty: extracted("Ana Gómez"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor().Extract(tt.text, tt.invoiceType)
			assert.Equal(t, tt.date, e.Date)
			assert.Equal(t, tt.counterparty, e.Counterparty)
		})
	}
}

func TestExtractCounterpartyOnNextLine(t *testing.T) {
	text := "Proveedor:\nDistribuidora ABC S.A.    NIT 800.111.222-3\nTotal: 50.00"

	e := newTestExtractor().Extract(text, models.InvoiceTypePurchase)
	assert.Equal(t, extracted("Distribuidora ABC S.A."), e.Counterparty)
}

func TestExtractSynthesizesItemFromTotal(t *testing.T) {
	e := newTestExtractor().Extract("EPM\nEmpresa: EPM E.S.P.\nTotal a pagar: 18226.89", models.InvoiceTypeUtilityService)

	assert.Equal(t, extracted("EPM E.S.P."), e.Counterparty)
	require.Equal(t, models.ConfidenceDefaulted, e.Items.Confidence)
	require.Len(t, e.Items.Value, 1)
	item := e.Items.Value[0]
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "18226.89", item.UnitPrice.StringFixed(2))
	assert.Equal(t, models.CategoryUtility, item.Category)
}

func TestExtractUnlabeledTotalIsMissing(t *testing.T) {
	e := newTestExtractor().Extract("Arroz Diana 5 kg  2 x 25000.00\nLeche entera  3 x 4500.50", models.InvoiceTypeSale)

	require.Len(t, e.Items.Value, 2)
	assert.Equal(t, models.ConfidenceExtracted, e.Items.Confidence)
	assert.Equal(t, "Arroz Diana 5 kg", e.Items.Value[0].Description)
	assert.Equal(t, models.CategoryFood, e.Items.Value[0].Category)
	assert.Equal(t, models.CategoryFood, e.Items.Value[1].Category)
	assert.Equal(t, models.ConfidenceMissing, e.DeclaredTotal.Confidence)
	assert.True(t, e.DeclaredTotal.Value.IsZero())
}

func TestItemsWithoutTotalFailValidation(t *testing.T) {
	e := newTestExtractor().Extract("Fecha: 15-01-2025\nCliente: ACME\nProducto A  2 x 500.00", models.InvoiceTypeSale)
	record := e.Record()

	require.Len(t, record.Items, 1)
	assert.True(t, record.DeclaredTotal.IsZero())
	assert.Equal(t, models.ConfidenceMissing, record.ConfidenceOf(models.FieldDeclaredTotal))

	result := validate.Validate(record)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, fmt.Sprintf(validate.MsgNonPositiveTotal, "0.00"))
}

func TestExtractTotalIgnoresSubtotal(t *testing.T) {
	total, ok := findTotal("Subtotal: 1000.00\nIVA: 190.00\nTOTAL A PAGAR: 1190.00")
	require.True(t, ok)
	assert.Equal(t, "1190.00", total.StringFixed(2))

	_, ok = findTotal("Subtotal: 1000.00")
	assert.False(t, ok)
}

func TestExtractNothing(t *testing.T) {
	e := newTestExtractor().Extract("", models.InvoiceTypeSale)

	assert.Equal(t, models.ConfidenceMissing, e.DeclaredTotal.Confidence)
	assert.True(t, e.DeclaredTotal.Value.IsZero())
	assert.Equal(t, models.ConfidenceDefaulted, e.Items.Confidence)
	require.Len(t, e.Items.Value, 1)
	assert.Equal(t, "Total factura", e.Items.Value[0].Description)
	assert.True(t, e.Items.Value[0].UnitPrice.IsZero())
	assert.Equal(t, defaulted("Consumidor Final"), e.Counterparty)
}

func TestExtractClassified(t *testing.T) {
	x := newTestExtractor()

	low := x.ExtractClassified("Total: 10.00", classify.Classification{Type: models.InvoiceTypeSale, LowConfidence: true})
	assert.Equal(t, defaulted(models.InvoiceTypeSale), low.InvoiceType)

	sure := x.ExtractClassified("Total: 10.00", classify.Classification{Type: models.InvoiceTypePurchase})
	assert.Equal(t, extracted(models.InvoiceTypePurchase), sure.InvoiceType)
}

func TestExtractionRecord(t *testing.T) {
	e := newTestExtractor().Extract(normalize.Normalize(saleInvoice), models.InvoiceTypeSale)
	record := e.Record()

	assert.Equal(t, "2025-01-15", record.Date)
	assert.Equal(t, "Empresa Ejemplo S.A.S.", record.CounterpartyName)
	assert.Equal(t, models.InvoiceTypeSale, record.InvoiceType)
	assert.Len(t, record.Items, 2)
	assert.Equal(t, "1500.00", record.ItemsSum().StringFixed(2))
	assert.Equal(t, models.ConfidenceExtracted, record.ConfidenceOf(models.FieldItems))
	assert.Equal(t, e.Confidence(), record.Provenance)
}

func TestWithRoleLabels(t *testing.T) {
	x := New(WithClock(fixedClock), WithRoleLabels(models.InvoiceTypeSale, "comprador"), WithPlaceholder(models.InvoiceTypeSale, "Cliente Mostrador"))

	assert.Equal(t, extracted("Pedro Ruiz"), x.Extract("Comprador: Pedro Ruiz", models.InvoiceTypeSale).Counterparty)
	assert.Equal(t, defaulted("Cliente Mostrador"), x.Extract("Cliente: Pedro Ruiz", models.InvoiceTypeSale).Counterparty)
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		description string
		want        models.Category
	}{
		{"Pan tajado", models.CategoryFood},
		{"Panes artesanales", models.CategoryFood},
		{"Huevos AA x30", models.CategoryFood},
		{"Café molido 500g", models.CategoryFood},
		{"Frijoles, bolsa", models.CategoryFood},
		{"Servicios de hosting", models.CategoryService},
		{"Energía activa kWh", models.CategoryUtility},
		{"Pantalla LED 32", models.CategoryGeneral},
		{"Pantalón jean", models.CategoryGeneral},
		{"Cafetera eléctrica", models.CategoryGeneral},
		{"Papelería de oficina", models.CategoryGeneral},
	}

	x := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, x.inferCategory(tt.description))
		})
	}
}

func TestNonFoodItemsTaxedAtGeneralRate(t *testing.T) {
	text := "Fecha: 15-01-2025\nCliente: ACME\n" +
		"Pantalla LED 32    1    800000.00\n" +
		"Pantalón jean    2    150000.00\n" +
		"Cafetera eléctrica    1    200000.00\n" +
		"Total: 1300000.00"

	record := newTestExtractor().Extract(text, models.InvoiceTypeSale).Record()
	require.Len(t, record.Items, 3)
	for _, item := range record.Items {
		assert.Equal(t, models.CategoryGeneral, item.Category, item.Description)
	}

	breakdown, err := tax.Compute(record, taxconfig.Default2025(), "Bogotá")
	require.NoError(t, err)
	assert.Equal(t, "0.19", breakdown.VATRate.StringFixed(2))
	assert.Equal(t, "247000.00", breakdown.VATAmount.StringFixed(2))
}

func TestFindItemsKeepsColonInDescription(t *testing.T) {
	items := newTestExtractor().findItems("Hora: 10:30\nCable HDMI 1:1    2    500.00", models.InvoiceTypePurchase)

	require.Len(t, items, 1)
	assert.Equal(t, "Cable HDMI 1:1", items[0].Description)
	assert.Equal(t, "1000.00", items[0].Subtotal().StringFixed(2))
}
