package taxconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"facturas/pkg/models"
)

const keyDelimiter = "::"

var validate = newValidator()

// Load reads the tax parameters from path. When path is empty, a taxconfig.yaml in
// the working directory, ./config or /etc/facturas is used, and when none exists
// the built-in parameters for year apply. A file must declare the requested year
// unless year is 0. TAX_UVT_VALUE overrides the UVT value in every case.
func Load(path string, year int) (*TaxConfig, error) {
	const op = "Load"

	// City names such as "Bogotá D.C." contain dots, so nested keys use "::".
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetEnvPrefix("TAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taxconfig")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/facturas")
	}

	var cfg *TaxConfig
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, WrapConfigError(op, err, "failed to read tax configuration")
		}
		cfg, err = Builtin(year)
		if err != nil {
			return nil, err
		}
		if v.IsSet("uvt_value") {
			uvt, err := decimal.NewFromString(strings.TrimSpace(v.GetString("uvt_value")))
			if err != nil {
				return nil, WrapConfigError(op, ErrInvalidConfig, fmt.Sprintf("TAX_UVT_VALUE: %v", err))
			}
			cfg.UVTValue = uvt
		}
	} else {
		cfg = &TaxConfig{}
		if err := v.Unmarshal(cfg, viper.DecodeHook(decimalHook)); err != nil {
			return nil, WrapConfigError(op, ErrInvalidConfig, err.Error())
		}
		if year != 0 && cfg.Year != year {
			return nil, WrapConfigError(op, ErrYearMismatch,
				fmt.Sprintf("%s declares year %d, requested %d", v.ConfigFileUsed(), cfg.Year, year))
		}
	}

	cfg.prepare()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and that the general VAT category and every withholding kind are present.
func (c *TaxConfig) Validate() error {
	const op = "Validate"

	if err := validate.Struct(c); err != nil {
		return WrapConfigError(op, ErrInvalidConfig, err.Error())
	}
	if _, ok := c.VATRates[models.CategoryGeneral]; !ok {
		return WrapConfigError(op, ErrInvalidConfig, "vat_rate_table must define the general category")
	}
	for _, kind := range models.WithholdingKinds {
		if _, ok := c.WithholdingThresholds[kind]; !ok {
			return WrapConfigError(op, ErrInvalidConfig, fmt.Sprintf("withholding_thresholds must define %q", kind))
		}
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook decodes YAML numbers and strings into decimal.Decimal.
var decimalHook mapstructure.DecodeHookFuncType = func(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint64:
		return decimal.NewFromInt(int64(v)), nil
	}
	return nil, fmt.Errorf("cannot decode %T into a decimal", data)
}
