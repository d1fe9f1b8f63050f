package taxconfig

import (
	"fmt"

	"github.com/shopspring/decimal"

	"facturas/pkg/models"
)

var builtins = map[int]func() *TaxConfig{
	2025: Default2025,
}

// Default2025 returns the 2025 parameters: UVT of 49,799 pesos, 19% general VAT,
// 5% on food and withholdings from 27 UVT.
func Default2025() *TaxConfig {
	return &TaxConfig{
		Year:     2025,
		UVTValue: decimal.NewFromInt(49799),
		VATRates: map[models.Category]decimal.Decimal{
			models.CategoryGeneral: decimal.RequireFromString("0.19"),
			models.CategoryFood:    decimal.RequireFromString("0.05"),
			models.CategoryService: decimal.RequireFromString("0.19"),
			models.CategoryUtility: decimal.RequireFromString("0.19"),
			models.CategoryOther:   decimal.RequireFromString("0.19"),
		},
		WithholdingThresholds: map[models.WithholdingKind]Threshold{
			models.WithholdingIncome: {UVT: decimal.NewFromInt(27), Rate: decimal.RequireFromString("0.025"), Base: BaseSubtotal},
			models.WithholdingVAT:    {UVT: decimal.NewFromInt(27), Rate: decimal.RequireFromString("0.15"), Base: BaseVAT},
			models.WithholdingICA:    {UVT: decimal.NewFromInt(27), Rate: decimal.Zero, Base: BaseSubtotal},
		},
		ICARateByCity: map[string]decimal.Decimal{
			"bogota":       decimal.RequireFromString("0.00966"),
			"bogota dc":    decimal.RequireFromString("0.00966"),
			"medellin":     decimal.RequireFromString("0.007"),
			"cali":         decimal.RequireFromString("0.0066"),
			"barranquilla": decimal.RequireFromString("0.008"),
			"cartagena":    decimal.RequireFromString("0.008"),
			"bucaramanga":  decimal.RequireFromString("0.007"),
			"pereira":      decimal.RequireFromString("0.007"),
		},
	}
}

// Builtin returns the built-in parameters for year.
func Builtin(year int) (*TaxConfig, error) {
	build, ok := builtins[year]
	if !ok {
		return nil, WrapConfigError("Builtin", ErrUnknownYear, fmt.Sprintf("year %d", year))
	}
	return build(), nil
}
