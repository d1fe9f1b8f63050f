package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"facturas/pkg/models"
)

func TestClassify(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		name          string
		text          string
		want          models.InvoiceType
		lowConfidence bool
		tie           bool
	}{
		{
			name: "sale",
			text: "FACTURA ELECTRÓNICA DE VENTA\nCliente: Empresa Ejemplo S.A.S.",
			want: models.InvoiceTypeSale,
		},
		{
			name: "purchase",
			text: "Proveedor: Distribuidora ABC\nOrden de compra 123",
			want: models.InvoiceTypePurchase,
		},
		{
			name: "utility",
			text: "EPM\nServicios Públicos Domiciliarios\nEnergía 350 kWh\nAcueducto",
			want: models.InvoiceTypeUtilityService,
		},
		{
			name:          "no cues defaults to sale",
			text:          "Documento 001\nTotal 1500.00",
			want:          models.InvoiceTypeSale,
			lowConfidence: true,
		},
		{
			name: "tie prefers sale",
			text: "Cliente\nProveedor",
			want: models.InvoiceTypeSale,
			tie:  true,
		},
		{
			name:          "partial words do not count",
			text:          "Clientela fiel",
			want:          models.InvoiceTypeSale,
			lowConfidence: true,
		},
		{
			name:          "empty text",
			text:          "",
			want:          models.InvoiceTypeSale,
			lowConfidence: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.lowConfidence, got.LowConfidence)
			assert.Equal(t, tt.tie, got.Tie)
		})
	}
}

func TestClassifyScores(t *testing.T) {
	got := NewDefault().Classify("Proveedor: ABC\nProveedor de servicios de energía")

	assert.Equal(t, models.InvoiceTypePurchase, got.Type)
	assert.Equal(t, 2, got.Scores[models.InvoiceTypePurchase])
	assert.Equal(t, 1, got.Scores[models.InvoiceTypeUtilityService])
	assert.Equal(t, 0, got.Scores[models.InvoiceTypeSale])
}

func TestClassifyCustomTable(t *testing.T) {
	c := New(KeywordTable{
		models.InvoiceTypePurchase: {"Gasto"},
	})

	assert.Equal(t, models.InvoiceTypePurchase, c.Classify("GASTO de oficina").Type)
	assert.True(t, c.Classify("Cliente").LowConfidence)
}
