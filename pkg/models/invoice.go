package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar date format carried by records.
const DateLayout = "2006-01-02"

// InvoiceType is the business role of an invoice from the processing company's perspective.
type InvoiceType string

const (
	InvoiceTypeSale           InvoiceType = "sale"
	InvoiceTypePurchase       InvoiceType = "purchase"
	InvoiceTypeUtilityService InvoiceType = "utility_service"
)

// InvoiceTypes lists every supported invoice type in a stable order.
var InvoiceTypes = []InvoiceType{InvoiceTypeSale, InvoiceTypePurchase, InvoiceTypeUtilityService}

// Valid reports whether t is one of the supported invoice types.
func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeSale, InvoiceTypePurchase, InvoiceTypeUtilityService:
		return true
	}
	return false
}

// Category drives the VAT rate applied to a line item.
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryFood    Category = "food"
	CategoryService Category = "service"
	CategoryUtility Category = "utility"
	CategoryOther   Category = "other"
)

// Confidence tags how a field value was obtained.
type Confidence string

const (
	ConfidenceExtracted Confidence = "extracted"
	ConfidenceDefaulted Confidence = "defaulted"
	ConfidenceMissing   Confidence = "missing"
)

// Provenance keys used in InvoiceRecord.Provenance.
const (
	FieldDate          = "date"
	FieldCounterparty  = "counterparty_name"
	FieldDeclaredTotal = "declared_total"
	FieldItems         = "items"
	FieldInvoiceType   = "invoice_type"
)

// InvoiceLineItem is a single billed product or service.
type InvoiceLineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Category    Category        `json:"category"`
}

// Subtotal returns quantity times unit price, unrounded.
func (li InvoiceLineItem) Subtotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// InvoiceRecord is the structured result of extraction.
type InvoiceRecord struct {
	// Date is a calendar date in DateLayout form.
	Date             string            `json:"date"`
	CounterpartyName string            `json:"counterparty_name"`
	Items            []InvoiceLineItem `json:"items"`
	// DeclaredTotal is the total printed on the document, taken as authoritative.
	DeclaredTotal decimal.Decimal `json:"declared_total"`
	InvoiceType   InvoiceType     `json:"invoice_type"`

	// Provenance records how each field was obtained. Keys are the Field* constants.
	Provenance map[string]Confidence `json:"provenance,omitempty"`
}

// ItemsSum returns the sum of the item subtotals, unrounded.
func (r *InvoiceRecord) ItemsSum() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range r.Items {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

// ParsedDate parses Date in DateLayout form.
func (r *InvoiceRecord) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// ConfidenceOf returns the provenance of a field, or missing when it was never recorded.
func (r *InvoiceRecord) ConfidenceOf(field string) Confidence {
	if c, ok := r.Provenance[field]; ok {
		return c
	}
	return ConfidenceMissing
}
