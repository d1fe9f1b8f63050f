// Package booking generates double-entry journal entries for processed invoices using
// the Colombian chart of accounts (Plan Único de Cuentas, PUC).
package booking

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"facturas/pkg/models"
)

// MaxDescriptionLength bounds the entry description (glosa).
const MaxDescriptionLength = 60

var (
	// ErrMissingInput is returned when the record or breakdown is nil.
	ErrMissingInput = errors.New("record and tax breakdown are required")

	// ErrUnbalanced is returned when debits and credits differ.
	ErrUnbalanced = errors.New("journal entry is not balanced")

	// ErrUnsupportedType is returned for invoice types without an account scheme.
	ErrUnsupportedType = errors.New("no account scheme for invoice type")
)

// Account is a PUC account.
type Account struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// PUC accounts used by the generated entries.
var (
	AccountCustomers        = Account{"130505", "Clientes nacionales"}
	AccountIncomeAdvance    = Account{"135515", "Retención en la fuente"}
	AccountVATAdvance       = Account{"135517", "Impuesto a las ventas retenido"}
	AccountICAAdvance       = Account{"135518", "Impuesto de industria y comercio retenido"}
	AccountSuppliers        = Account{"220505", "Proveedores nacionales"}
	AccountPayables         = Account{"233550", "Costos y gastos por pagar - servicios públicos"}
	AccountIncomeWithheld   = Account{"236540", "Retención en la fuente por pagar - compras"}
	AccountVATWithheld      = Account{"236701", "Impuesto a las ventas retenido por pagar"}
	AccountICAWithheld      = Account{"236801", "Impuesto de industria y comercio retenido por pagar"}
	AccountVATGenerated     = Account{"240805", "IVA generado"}
	AccountVATDeductible    = Account{"240810", "IVA descontable"}
	AccountSalesRevenue     = Account{"413595", "Ingresos - comercio al por mayor y al por menor"}
	AccountServiceRevenue   = Account{"415595", "Ingresos - actividades de servicios"}
	AccountPurchases        = Account{"620505", "Compras de mercancías"}
	AccountServicesExpense  = Account{"513595", "Gastos - servicios"}
	AccountUtilitiesExpense = Account{"513525", "Gastos - servicios públicos"}
)

// Line is one debit or credit of a journal entry. Exactly one of Debit and Credit is non-zero.
type Line struct {
	Account Account         `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

// JournalEntry is the balanced entry for one invoice.
type JournalEntry struct {
	Date        string `json:"date"`
	Period      string `json:"period"` // YYYY-MM
	Description string `json:"description"`
	Lines       []Line `json:"lines"`
}

// TotalDebit returns the sum of the debit column.
func (e *JournalEntry) TotalDebit() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range e.Lines {
		sum = sum.Add(l.Debit)
	}
	return sum
}

// TotalCredit returns the sum of the credit column.
func (e *JournalEntry) TotalCredit() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range e.Lines {
		sum = sum.Add(l.Credit)
	}
	return sum
}

// Generate builds the journal entry for a taxed invoice.
//
// Sales debit the customer for base plus VAT less the withholdings the customer applies,
// which are recorded as tax advances. Purchases and utility bills debit the expense and
// deductible VAT and credit the withholdings payable and the net amount owed.
// Zero-amount lines are omitted.
func Generate(record *models.InvoiceRecord, breakdown *models.TaxBreakdown) (*JournalEntry, error) {
	const op = "booking.Generate"

	if record == nil || breakdown == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingInput)
	}
	if len(record.Date) < 7 {
		return nil, fmt.Errorf("%s: invalid date %q", op, record.Date)
	}

	entry := &JournalEntry{
		Date:        record.Date,
		Period:      record.Date[:7],
		Description: description(record),
	}

	base := breakdown.TaxableBase
	vat := breakdown.VATAmount
	net := base.Add(vat).Sub(breakdown.TotalWithholding())

	switch record.InvoiceType {
	case models.InvoiceTypeSale:
		entry.debit(AccountCustomers, net)
		entry.debit(AccountIncomeAdvance, breakdown.IncomeWithholding)
		entry.debit(AccountVATAdvance, breakdown.VATWithholding)
		entry.debit(AccountICAAdvance, breakdown.ICAWithholding)
		entry.credit(revenueAccount(record), base)
		entry.credit(AccountVATGenerated, vat)
	case models.InvoiceTypePurchase, models.InvoiceTypeUtilityService:
		counterparty := AccountSuppliers
		if record.InvoiceType == models.InvoiceTypeUtilityService {
			counterparty = AccountPayables
		}
		entry.debit(expenseAccount(record), base)
		entry.debit(AccountVATDeductible, vat)
		entry.credit(AccountIncomeWithheld, breakdown.IncomeWithholding)
		entry.credit(AccountVATWithheld, breakdown.VATWithholding)
		entry.credit(AccountICAWithheld, breakdown.ICAWithholding)
		entry.credit(counterparty, net)
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedType, record.InvoiceType)
	}

	if !entry.TotalDebit().Equal(entry.TotalCredit()) {
		return nil, fmt.Errorf("%s: %w: debit %s, credit %s", op, ErrUnbalanced,
			entry.TotalDebit().StringFixed(2), entry.TotalCredit().StringFixed(2))
	}
	return entry, nil
}

func (e *JournalEntry) debit(a Account, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	e.Lines = append(e.Lines, Line{Account: a, Debit: amount, Credit: decimal.Zero})
}

func (e *JournalEntry) credit(a Account, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	e.Lines = append(e.Lines, Line{Account: a, Debit: decimal.Zero, Credit: amount})
}

// revenueAccount picks services revenue when most of the base is services.
func revenueAccount(record *models.InvoiceRecord) Account {
	if dominant(record) == models.CategoryService {
		return AccountServiceRevenue
	}
	return AccountSalesRevenue
}

func expenseAccount(record *models.InvoiceRecord) Account {
	if record.InvoiceType == models.InvoiceTypeUtilityService {
		return AccountUtilitiesExpense
	}
	switch dominant(record) {
	case models.CategoryService:
		return AccountServicesExpense
	case models.CategoryUtility:
		return AccountUtilitiesExpense
	}
	return AccountPurchases
}

// dominant returns the category carrying the largest share of the base.
func dominant(record *models.InvoiceRecord) models.Category {
	totals := make(map[models.Category]decimal.Decimal)
	var best models.Category
	for _, item := range record.Items {
		totals[item.Category] = totals[item.Category].Add(item.Subtotal())
		if best == "" || totals[item.Category].GreaterThan(totals[best]) {
			best = item.Category
		}
	}
	return best
}

func description(record *models.InvoiceRecord) string {
	var prefix string
	switch record.InvoiceType {
	case models.InvoiceTypeSale:
		prefix = "Venta"
	case models.InvoiceTypePurchase:
		prefix = "Compra"
	case models.InvoiceTypeUtilityService:
		prefix = "Servicio público"
	}
	text := prefix
	if record.CounterpartyName != "" {
		text += " - " + record.CounterpartyName
	}
	if utf8.RuneCountInString(text) > MaxDescriptionLength {
		runes := []rune(text)
		text = string(runes[:MaxDescriptionLength])
	}
	return text
}
