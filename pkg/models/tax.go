package models

import "github.com/shopspring/decimal"

// ComplianceStatus summarises whether a tax computation can be filed as is.
type ComplianceStatus string

const (
	StatusCompliant      ComplianceStatus = "compliant"
	StatusReviewRequired ComplianceStatus = "review_required"
	StatusNonCompliant   ComplianceStatus = "non_compliant"
)

// WithholdingKind identifies a Colombian withholding regime.
type WithholdingKind string

const (
	WithholdingIncome WithholdingKind = "income" // retención en la fuente
	WithholdingVAT    WithholdingKind = "vat"    // reteIVA
	WithholdingICA    WithholdingKind = "ica"    // reteICA
)

// WithholdingKinds lists every withholding kind in report order.
var WithholdingKinds = []WithholdingKind{WithholdingIncome, WithholdingVAT, WithholdingICA}

// VATLine is the VAT computed for all items sharing one category.
type VATLine struct {
	Category Category        `json:"category"`
	Base     decimal.Decimal `json:"base"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   decimal.Decimal `json:"amount"`
}

// Withholding details one threshold-gated withholding.
type Withholding struct {
	Kind         WithholdingKind `json:"kind"`
	ThresholdUVT decimal.Decimal `json:"threshold_uvt"`
	Threshold    decimal.Decimal `json:"threshold"`
	Base         decimal.Decimal `json:"base"`
	Rate         decimal.Decimal `json:"rate"`
	Applied      bool            `json:"applied"`
	Amount       decimal.Decimal `json:"amount"`
}

// TaxBreakdown is the output of the tax engine. All amounts are rounded to 2 places.
type TaxBreakdown struct {
	TaxableBase       decimal.Decimal  `json:"taxable_base"`
	TotalUVT          decimal.Decimal  `json:"total_uvt"`
	VATRate           decimal.Decimal  `json:"vat_rate"`
	VATAmount         decimal.Decimal  `json:"vat_amount"`
	IncomeWithholding decimal.Decimal  `json:"income_withholding"`
	VATWithholding    decimal.Decimal  `json:"vat_withholding"`
	ICAWithholding    decimal.Decimal  `json:"ica_withholding"`
	ComplianceStatus  ComplianceStatus `json:"compliance_status"`
	VATLines          []VATLine        `json:"vat_lines"`
	Withholdings      []Withholding    `json:"withholdings"`
	City              string           `json:"city"`
	Notes             []string         `json:"notes,omitempty"`
}

// TotalWithholding returns the sum of the three withholdings.
func (b *TaxBreakdown) TotalWithholding() decimal.Decimal {
	return b.IncomeWithholding.Add(b.VATWithholding).Add(b.ICAWithholding)
}
