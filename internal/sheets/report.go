package sheets

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"facturas/internal/pipeline"
	"facturas/pkg/models"
)

// ReportHeaders are the column titles of the tax report, A to R.
var ReportHeaders = []string{
	"Archivo", "ID", "Fecha", "Tipo", "Contraparte", "Ciudad",
	"Base gravable", "Tarifa IVA", "IVA", "Retefuente", "ReteIVA", "ReteICA",
	"Total", "Total UVT", "Estado", "Cumplimiento", "Observaciones", "Procesado",
}

const lastColumn = "R"

// Spanish labels for invoice types in the report.
var typeLabels = map[models.InvoiceType]string{
	models.InvoiceTypeSale:           "Venta",
	models.InvoiceTypePurchase:       "Compra",
	models.InvoiceTypeUtilityService: "Servicio público",
}

// ReportRow is one invoice in the tax report.
type ReportRow struct {
	Filename       string
	ID             string
	Date           string
	Type           string
	Counterparty   string
	City           string
	TaxableBase    float64
	VATRate        float64
	VAT            float64
	IncomeWithheld float64
	VATWithheld    float64
	ICAWithheld    float64
	Total          float64
	TotalUVT       float64
	Status         string
	Compliance     string
	Notes          string
	ProcessedAt    string
}

// Values returns the row in column order for the Sheets API.
func (r ReportRow) Values() []interface{} {
	return []interface{}{
		r.Filename,       // A: Archivo
		r.ID,             // B: ID
		r.Date,           // C: Fecha
		r.Type,           // D: Tipo
		r.Counterparty,   // E: Contraparte
		r.City,           // F: Ciudad
		r.TaxableBase,    // G: Base gravable
		r.VATRate,        // H: Tarifa IVA
		r.VAT,            // I: IVA
		r.IncomeWithheld, // J: Retefuente
		r.VATWithheld,    // K: ReteIVA
		r.ICAWithheld,    // L: ReteICA
		r.Total,          // M: Total
		r.TotalUVT,       // N: Total UVT
		r.Status,         // O: Estado
		r.Compliance,     // P: Cumplimiento
		r.Notes,          // Q: Observaciones
		r.ProcessedAt,    // R: Procesado
	}
}

// BuildReportRows converts pipeline results into report rows, in order. Failed results
// keep their identifying columns and carry the failure in the notes.
func BuildReportRows(results []*pipeline.Result) []ReportRow {
	rows := make([]ReportRow, 0, len(results))
	for _, result := range results {
		row := ReportRow{
			Filename: result.Document,
			ID:       result.ID,
			City:     result.City,
			Status:   string(result.Status),
		}
		if !result.ProcessedAt.IsZero() {
			row.ProcessedAt = result.ProcessedAt.Format("02/01/2006 15:04:05")
		}

		var notes []string
		if rec := result.Record; rec != nil {
			row.Type = typeLabels[rec.InvoiceType]
			row.Counterparty = rec.CounterpartyName
			row.Total = money(rec.DeclaredTotal)
			if t, err := time.Parse(models.DateLayout, rec.Date); err == nil {
				row.Date = t.Format("02/01/2006")
			}
			notes = append(notes, result.Validation.Errors...)
		}

		if b := result.Breakdown; b != nil {
			row.TaxableBase = money(b.TaxableBase)
			row.VATRate = b.VATRate.InexactFloat64()
			row.VAT = money(b.VATAmount)
			row.IncomeWithheld = money(b.IncomeWithholding)
			row.VATWithheld = money(b.VATWithholding)
			row.ICAWithheld = money(b.ICAWithholding)
			row.TotalUVT = b.TotalUVT.InexactFloat64()
			row.Compliance = string(b.ComplianceStatus)
			notes = append(notes, b.Notes...)
		}

		if result.Error != nil && (result.Record == nil || result.Validation.Valid) {
			notes = append(notes, "Error: "+result.Error.Error())
		}
		row.Notes = strings.Join(notes, "; ")

		rows = append(rows, row)
	}
	return rows
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
