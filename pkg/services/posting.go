// Package services maps processed invoices onto the payloads expected by the external
// accounting service.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/internal/booking"
	"facturas/pkg/models"
)

// DefaultPaymentTermDays is the due date offset used when none is configured.
const DefaultPaymentTermDays = 30

// FinalConsumer names the counterparty when the invoice carries neither a contact ID nor a name.
const FinalConsumer = "Consumidor Final"

var (
	// ErrMissingRecord is returned when there is nothing to post.
	ErrMissingRecord = errors.New("invoice record is required")

	// ErrInvalidDate is returned when the record date cannot be parsed.
	ErrInvalidDate = errors.New("invoice date is not a calendar date")
)

var withholdingLabels = map[models.WithholdingKind]string{
	models.WithholdingIncome: "Retefuente",
	models.WithholdingVAT:    "ReteIVA",
	models.WithholdingICA:    "ReteICA",
}

// InvoicePayload is the invoice-creation request sent to the accounting service.
type InvoicePayload struct {
	Date         string          `json:"date"`    // Fecha de emisión (YYYY-MM-DD)
	DueDate      string          `json:"dueDate"` // Fecha de vencimiento
	Client       ClientRef       `json:"client"`
	Items        []PayloadItem   `json:"items"`
	Retentions   []Retention     `json:"retentions,omitempty"`
	Total        decimal.Decimal `json:"total"`
	Observations string          `json:"observations"`
	Type         string          `json:"type"`

	// Accounting is the PUC journal entry, present when taxes were computed.
	Accounting *booking.JournalEntry `json:"accounting,omitempty"`
}

// ClientRef points at an existing contact, or carries the name to create one from.
type ClientRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// PayloadItem is one line of the posted invoice.
type PayloadItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Category string          `json:"category"`
	Tax      []ItemTax       `json:"tax,omitempty"`
}

// ItemTax is the VAT charged on one line.
type ItemTax struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Retention is an applied withholding.
type Retention struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Base       decimal.Decimal `json:"base"`
	Amount     decimal.Decimal `json:"amount"`
}

// PostingOptions tune payload generation.
type PostingOptions struct {
	PaymentTermDays int
}

// BuildPostingPayload maps a record and its tax breakdown onto the invoice-creation
// payload. An empty contactID falls back to the counterparty name so the poster can
// create the contact. A nil breakdown posts the items without taxes or journal entry.
func BuildPostingPayload(record *models.InvoiceRecord, breakdown *models.TaxBreakdown, contactID string) (*InvoicePayload, error) {
	return BuildPostingPayloadWithOptions(record, breakdown, contactID, PostingOptions{})
}

// BuildPostingPayloadWithOptions is BuildPostingPayload with explicit options.
func BuildPostingPayloadWithOptions(record *models.InvoiceRecord, breakdown *models.TaxBreakdown, contactID string, opts PostingOptions) (*InvoicePayload, error) {
	if record == nil {
		return nil, ErrMissingRecord
	}
	date, err := record.ParsedDate()
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, record.Date)
	}

	days := opts.PaymentTermDays
	if days <= 0 {
		days = DefaultPaymentTermDays
	}

	payload := &InvoicePayload{
		Date:    date.Format(models.DateLayout),
		DueDate: date.AddDate(0, 0, days).Format(models.DateLayout),
		Client:  clientRef(record, contactID),
		Total:   record.DeclaredTotal.Round(2),
		Type:    string(record.InvoiceType),
	}

	rates := make(map[models.Category]decimal.Decimal)
	if breakdown != nil {
		for _, line := range breakdown.VATLines {
			rates[line.Category] = line.Rate
		}
	}

	for _, item := range record.Items {
		pi := PayloadItem{
			Name:     item.Description,
			Price:    item.UnitPrice.Round(2),
			Quantity: item.Quantity,
			Category: string(item.Category),
		}
		if rate, ok := rates[item.Category]; ok && rate.IsPositive() {
			pi.Tax = []ItemTax{{
				Name:       "IVA",
				Percentage: rate.Shift(2),
				Amount:     item.Subtotal().Mul(rate).Round(2),
			}}
		}
		payload.Items = append(payload.Items, pi)
	}

	if breakdown != nil {
		for _, w := range breakdown.Withholdings {
			if !w.Applied {
				continue
			}
			payload.Retentions = append(payload.Retentions, Retention{
				Name:       withholdingLabels[w.Kind],
				Percentage: w.Rate.Shift(2),
				Base:       w.Base,
				Amount:     w.Amount,
			})
		}
	}

	if breakdown != nil {
		entry, err := booking.Generate(record, breakdown)
		if err != nil {
			return nil, fmt.Errorf("failed to generate journal entry: %w", err)
		}
		payload.Accounting = entry
	}

	payload.Observations = observations(breakdown)
	return payload, nil
}

func clientRef(record *models.InvoiceRecord, contactID string) ClientRef {
	if id := strings.TrimSpace(contactID); id != "" {
		return ClientRef{ID: id}
	}
	if name := strings.TrimSpace(record.CounterpartyName); name != "" {
		return ClientRef{Name: name}
	}
	return ClientRef{Name: FinalConsumer}
}

// observations summarises VAT, withholdings and compliance in one line.
func observations(b *models.TaxBreakdown) string {
	if b == nil {
		return "Impuestos no calculados"
	}

	parts := []string{
		fmt.Sprintf("Base gravable: %s", b.TaxableBase.StringFixed(2)),
		fmt.Sprintf("IVA: %s", b.VATAmount.StringFixed(2)),
	}
	for _, kind := range models.WithholdingKinds {
		var amount decimal.Decimal
		switch kind {
		case models.WithholdingIncome:
			amount = b.IncomeWithholding
		case models.WithholdingVAT:
			amount = b.VATWithholding
		case models.WithholdingICA:
			amount = b.ICAWithholding
		}
		parts = append(parts, fmt.Sprintf("%s: %s", withholdingLabels[kind], amount.StringFixed(2)))
	}
	if b.City != "" {
		parts = append(parts, "Ciudad: "+b.City)
	}
	parts = append(parts, "Estado: "+string(b.ComplianceStatus))
	parts = append(parts, b.Notes...)

	return strings.Join(parts, " | ")
}
