// Package tax computes Colombian VAT and threshold-gated withholdings for a validated invoice.
//
// All arithmetic is fixed-point. Every reported amount is rounded once, half up, to two
// decimal places. Withholdings are all-or-nothing: below the UVT threshold nothing is
// withheld, at or above it the rate applies to the whole base.
package tax

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"facturas/internal/logger"
	"facturas/internal/taxconfig"
	"facturas/pkg/models"
)

const amountPlaces = 2

// Engine computes tax breakdowns against one immutable configuration.
type Engine struct {
	cfg *taxconfig.TaxConfig
	log zerolog.Logger
}

// NewEngine creates an engine bound to cfg.
func NewEngine(cfg *taxconfig.TaxConfig) *Engine {
	return &Engine{
		cfg: cfg,
		log: logger.WithComponent("tax"),
	}
}

// Config returns the configuration the engine computes with.
func (e *Engine) Config() *taxconfig.TaxConfig {
	return e.cfg
}

// Compute runs Compute with the engine's configuration and logs the outcome.
func (e *Engine) Compute(record *models.InvoiceRecord, city string) (*models.TaxBreakdown, error) {
	breakdown, err := Compute(record, e.cfg, city)
	if err != nil {
		e.log.Error().Err(err).Str("city", city).Msg("Tax computation failed")
		return breakdown, err
	}

	for _, w := range breakdown.Withholdings {
		e.log.Debug().
			Str("kind", string(w.Kind)).
			Bool("applied", w.Applied).
			Str("threshold", w.Threshold.StringFixed(amountPlaces)).
			Str("amount", w.Amount.StringFixed(amountPlaces)).
			Msg("Withholding evaluated")
	}
	e.log.Info().
		Str("invoice_type", string(record.InvoiceType)).
		Str("city", city).
		Str("vat_amount", breakdown.VATAmount.StringFixed(amountPlaces)).
		Str("withholding", breakdown.TotalWithholding().StringFixed(amountPlaces)).
		Str("compliance_status", string(breakdown.ComplianceStatus)).
		Msg("Tax computed")

	return breakdown, nil
}

// Compute derives VAT and withholdings for record under cfg. The city selects the ICA
// rate. Lookups that fall back (unknown category or city, missing threshold) mark the
// result review_required. A negative amount marks it non_compliant and returns ErrNegativeTax
// together with the breakdown.
func Compute(record *models.InvoiceRecord, cfg *taxconfig.TaxConfig, city string) (*models.TaxBreakdown, error) {
	const op = "Compute"

	if record == nil || cfg == nil {
		return nil, WrapTaxError(op, ErrInvalidInput, "record and configuration are required")
	}
	if !cfg.UVTValue.IsPositive() {
		return nil, WrapTaxError(op, ErrInvalidInput, "uvt_value must be positive")
	}

	b := &models.TaxBreakdown{
		ComplianceStatus: models.StatusCompliant,
		City:             city,
	}
	review := func(format string, args ...interface{}) {
		b.ComplianceStatus = models.StatusReviewRequired
		b.Notes = append(b.Notes, fmt.Sprintf(format, args...))
	}

	base, vat := computeVAT(record, cfg, b, review)
	b.TaxableBase = base.Round(amountPlaces)
	b.VATAmount = vat.Round(amountPlaces)
	b.VATRate = effectiveRate(b.VATLines, base, vat)
	b.TotalUVT = record.DeclaredTotal.DivRound(cfg.UVTValue, amountPlaces)

	icaRate, cityKnown := cfg.ICARate(city)
	if !cityKnown {
		review("no ICA rate configured for city %q", city)
	}

	for _, kind := range models.WithholdingKinds {
		threshold, ok := cfg.Threshold(kind)
		if !ok {
			review("no withholding threshold configured for %s", kind)
			b.Withholdings = append(b.Withholdings, models.Withholding{Kind: kind, Amount: decimal.Zero})
			continue
		}

		w := models.Withholding{
			Kind:         kind,
			ThresholdUVT: threshold.UVT,
			Threshold:    cfg.ThresholdAmount(threshold),
			Rate:         threshold.Rate,
			Amount:       decimal.Zero,
		}
		switch threshold.Base {
		case taxconfig.BaseVAT:
			w.Base = b.VATAmount
		case taxconfig.BaseTotal:
			w.Base = record.DeclaredTotal
		default:
			w.Base = base
		}
		if kind == models.WithholdingICA {
			w.Rate = icaRate
		}

		w.Applied = record.DeclaredTotal.GreaterThanOrEqual(w.Threshold) && (kind != models.WithholdingICA || cityKnown)
		if w.Applied {
			w.Amount = w.Base.Mul(w.Rate).Round(amountPlaces)
		}
		w.Base = w.Base.Round(amountPlaces)
		b.Withholdings = append(b.Withholdings, w)

		switch kind {
		case models.WithholdingIncome:
			b.IncomeWithholding = w.Amount
		case models.WithholdingVAT:
			b.VATWithholding = w.Amount
		case models.WithholdingICA:
			b.ICAWithholding = w.Amount
		}
	}

	for _, amount := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"vat_amount", b.VATAmount},
		{"income_withholding", b.IncomeWithholding},
		{"vat_withholding", b.VATWithholding},
		{"ica_withholding", b.ICAWithholding},
	} {
		if amount.value.IsNegative() {
			b.ComplianceStatus = models.StatusNonCompliant
			return b, WrapTaxError(op, ErrNegativeTax, fmt.Sprintf("%s is %s", amount.name, amount.value.StringFixed(amountPlaces)))
		}
	}

	return b, nil
}

// computeVAT groups items by category and returns the unrounded taxable base and VAT.
func computeVAT(record *models.InvoiceRecord, cfg *taxconfig.TaxConfig, b *models.TaxBreakdown, review func(string, ...interface{})) (decimal.Decimal, decimal.Decimal) {
	general, _ := cfg.VATRate(models.CategoryGeneral)

	index := make(map[models.Category]int)
	var lines []models.VATLine

	for _, item := range record.Items {
		category := item.Category
		if record.InvoiceType == models.InvoiceTypeUtilityService {
			category = models.CategoryUtility
		}
		if category == "" {
			category = models.CategoryGeneral
		}

		i, seen := index[category]
		if !seen {
			rate, ok := cfg.VATRate(category)
			if !ok {
				review("no VAT rate configured for category %q, general rate applied", category)
				rate = general
			}
			i = len(lines)
			index[category] = i
			lines = append(lines, models.VATLine{Category: category, Base: decimal.Zero, Rate: rate})
		}
		lines[i].Base = lines[i].Base.Add(item.Subtotal())
	}

	base, vat := decimal.Zero, decimal.Zero
	for i := range lines {
		amount := lines[i].Base.Mul(lines[i].Rate)
		base = base.Add(lines[i].Base)
		vat = vat.Add(amount)

		lines[i].Amount = amount.Round(amountPlaces)
		lines[i].Base = lines[i].Base.Round(amountPlaces)
	}
	b.VATLines = lines
	return base, vat
}

// effectiveRate is the shared rate when all lines agree, otherwise VAT over base to four places.
func effectiveRate(lines []models.VATLine, base, vat decimal.Decimal) decimal.Decimal {
	if len(lines) == 0 {
		return decimal.Zero
	}
	uniform := true
	for _, l := range lines[1:] {
		if !l.Rate.Equal(lines[0].Rate) {
			uniform = false
			break
		}
	}
	if uniform || base.IsZero() {
		return lines[0].Rate
	}
	return vat.DivRound(base, 4)
}
