// Package validate checks extracted invoice records for structural and business-rule
// consistency.
//
// Validation never fails with an error. It returns every violated rule as a string,
// in rule order. Strings prefixed with WarningPrefix are soft issues that leave the
// record valid.
package validate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/pkg/models"
)

// WarningPrefix marks soft issues in Result.Errors.
const WarningPrefix = "warning: "

// ReconciliationTolerance is the largest accepted gap between the item sum and the declared total.
var ReconciliationTolerance = decimal.RequireFromString("0.01")

// Messages for each rule. Item rules are formatted with the 1-based item position.
const (
	MsgMissingRecord     = "missing invoice record"
	MsgInvalidDate       = "invalid date %q: must be a calendar date in YYYY-MM-DD form"
	MsgEmptyItems        = "empty items: invoice must have at least one line item"
	MsgItemQuantity      = "item %d: quantity must be positive"
	MsgItemUnitPrice     = "item %d: unit price must not be negative"
	MsgNonPositiveTotal  = "declared total must be positive, got %s"
	MsgEmptyCounterparty = WarningPrefix + "empty counterparty name"
	MsgReconciliation    = WarningPrefix + "items sum %s does not match declared total %s"
	MsgDefaultedType     = WarningPrefix + "invoice type %s defaulted, no classification cues found"
)

// Zero-value dates written by exporters when no date exists.
var placeholderDates = []string{"0000-00-00", "0001-01-01"}

// Result is the outcome of validating one record.
type Result struct {
	Valid  bool     `json:"is_valid"`
	Errors []string `json:"errors"`
}

// Warnings returns the soft issues.
func (r Result) Warnings() []string {
	var out []string
	for _, e := range r.Errors {
		if IsWarning(e) {
			out = append(out, e)
		}
	}
	return out
}

// Failures returns the structural violations.
func (r Result) Failures() []string {
	var out []string
	for _, e := range r.Errors {
		if !IsWarning(e) {
			out = append(out, e)
		}
	}
	return out
}

// IsWarning reports whether msg is a soft issue.
func IsWarning(msg string) bool {
	return strings.HasPrefix(msg, WarningPrefix)
}

// Validate checks rec. It is deterministic: the same record always yields the same result.
func Validate(rec *models.InvoiceRecord) Result {
	if rec == nil {
		return Result{Valid: false, Errors: []string{MsgMissingRecord}}
	}

	var errs []string
	valid := true
	fail := func(msg string) {
		errs = append(errs, msg)
		valid = false
	}
	warn := func(msg string) {
		errs = append(errs, msg)
	}

	if !validDate(rec) {
		fail(fmt.Sprintf(MsgInvalidDate, rec.Date))
	}

	if len(rec.Items) == 0 {
		fail(MsgEmptyItems)
	}
	for i, item := range rec.Items {
		if !item.Quantity.IsPositive() {
			fail(fmt.Sprintf(MsgItemQuantity, i+1))
		}
		if item.UnitPrice.IsNegative() {
			fail(fmt.Sprintf(MsgItemUnitPrice, i+1))
		}
	}

	if !rec.DeclaredTotal.IsPositive() {
		fail(fmt.Sprintf(MsgNonPositiveTotal, rec.DeclaredTotal.StringFixed(2)))
	}

	if strings.TrimSpace(rec.CounterpartyName) == "" {
		warn(MsgEmptyCounterparty)
	}

	if len(rec.Items) > 0 && rec.DeclaredTotal.IsPositive() {
		sum := rec.ItemsSum()
		if sum.Sub(rec.DeclaredTotal).Abs().GreaterThan(ReconciliationTolerance) {
			warn(fmt.Sprintf(MsgReconciliation, sum.StringFixed(2), rec.DeclaredTotal.StringFixed(2)))
		}
	}

	if rec.ConfidenceOf(models.FieldInvoiceType) == models.ConfidenceDefaulted {
		warn(fmt.Sprintf(MsgDefaultedType, rec.InvoiceType))
	}

	return Result{Valid: valid, Errors: errs}
}

// validDate rejects unparseable dates and zero-value placeholders.
func validDate(rec *models.InvoiceRecord) bool {
	for _, p := range placeholderDates {
		if rec.Date == p {
			return false
		}
	}
	_, err := rec.ParsedDate()
	return err == nil
}
