package tax

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeTax is returned when any computed tax amount is negative. It is never clamped.
	ErrNegativeTax = errors.New("negative tax amount")

	// ErrInvalidInput is returned when the engine receives no record or no configuration.
	ErrInvalidInput = errors.New("invalid tax engine input")
)

// TaxError wraps tax computation failures with the failing operation.
type TaxError struct {
	// Op is the operation that failed (e.g., "Compute").
	Op string

	// Err is the underlying error.
	Err error

	// Details names the offending amount.
	Details string
}

func (e *TaxError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("tax: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("tax: %s failed: %v", e.Op, e.Err)
}

func (e *TaxError) Unwrap() error {
	return e.Err
}

func (e *TaxError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapTaxError wraps err as a TaxError unless it already is one.
func WrapTaxError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var taxErr *TaxError
	if errors.As(err, &taxErr) {
		return err
	}
	return &TaxError{Op: op, Err: err, Details: details}
}
