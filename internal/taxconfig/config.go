// Package taxconfig holds the yearly Colombian tax parameters used by the tax engine.
//
// A TaxConfig is loaded once per process (from YAML or the built-in table for a year),
// validated, and then passed explicitly to the engine. Callers must treat it as
// read-only after Load returns.
package taxconfig

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"facturas/internal/normalize"
	"facturas/pkg/models"
)

// BaseKind names the amount a withholding rate is applied to.
type BaseKind string

const (
	// BaseSubtotal is the taxable base, the sum of item subtotals.
	BaseSubtotal BaseKind = "subtotal"
	// BaseVAT is the computed VAT amount (reteIVA).
	BaseVAT BaseKind = "vat"
	// BaseTotal is the declared invoice total.
	BaseTotal BaseKind = "total"
)

// Threshold gates a withholding: it applies only when the declared total reaches UVT
// units. For ICA the rate comes from the city table and Rate is ignored.
type Threshold struct {
	UVT  decimal.Decimal `mapstructure:"uvt" json:"uvt" validate:"gte=0"`
	Rate decimal.Decimal `mapstructure:"rate" json:"rate" validate:"gte=0,lte=1"`
	Base BaseKind        `mapstructure:"base" json:"base" validate:"omitempty,oneof=subtotal vat total"`
}

// TaxConfig is the tax parameter set for one fiscal year.
type TaxConfig struct {
	Year                  int                                  `mapstructure:"year" json:"year" validate:"gte=2000,lte=2100"`
	UVTValue              decimal.Decimal                      `mapstructure:"uvt_value" json:"uvt_value" validate:"gt=0"`
	VATRates              map[models.Category]decimal.Decimal  `mapstructure:"vat_rate_table" json:"vat_rate_table" validate:"required,dive,gte=0,lte=1"`
	WithholdingThresholds map[models.WithholdingKind]Threshold `mapstructure:"withholding_thresholds" json:"withholding_thresholds" validate:"required,dive"`
	ICARateByCity         map[string]decimal.Decimal           `mapstructure:"ica_rate_by_city" json:"ica_rate_by_city" validate:"dive,gte=0,lte=1"`
}

// VATRate returns the rate for category.
func (c *TaxConfig) VATRate(category models.Category) (decimal.Decimal, bool) {
	rate, ok := c.VATRates[category]
	return rate, ok
}

// Threshold returns the threshold entry for kind.
func (c *TaxConfig) Threshold(kind models.WithholdingKind) (Threshold, bool) {
	t, ok := c.WithholdingThresholds[kind]
	return t, ok
}

// ThresholdAmount converts the UVT threshold of t into pesos.
func (c *TaxConfig) ThresholdAmount(t Threshold) decimal.Decimal {
	return t.UVT.Mul(c.UVTValue)
}

// ICARate returns the ICA withholding rate for city, matching case- and accent-insensitively.
func (c *TaxConfig) ICARate(city string) (decimal.Decimal, bool) {
	key := CityKey(city)
	if key == "" {
		return decimal.Zero, false
	}
	rate, ok := c.ICARateByCity[key]
	return rate, ok
}

// Cities returns the configured city keys.
func (c *TaxConfig) Cities() []string {
	cities := make([]string, 0, len(c.ICARateByCity))
	for city := range c.ICARateByCity {
		cities = append(cities, city)
	}
	return cities
}

// CityKey folds a city name into the form used as ICA table key: "Bogotá D.C." becomes "bogota dc".
func CityKey(city string) string {
	folded := normalize.Fold(city)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			return r
		}
		return -1
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// prepare folds city keys and fills default withholding bases.
func (c *TaxConfig) prepare() {
	cities := make(map[string]decimal.Decimal, len(c.ICARateByCity))
	for city, rate := range c.ICARateByCity {
		cities[CityKey(city)] = rate
	}
	c.ICARateByCity = cities

	for kind, t := range c.WithholdingThresholds {
		if t.Base == "" {
			t.Base = BaseSubtotal
			if kind == models.WithholdingVAT {
				t.Base = BaseVAT
			}
			c.WithholdingThresholds[kind] = t
		}
	}
}
