// Package extract pulls the structured invoice fields out of normalized text.
//
// Every field is returned as a tagged result carrying its confidence: extracted when
// read from the document, defaulted when a fallback was substituted, missing when no
// value could be produced. Extraction never fails; gaps are left for the validator.
package extract

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"facturas/internal/classify"
	"facturas/internal/logger"
	"facturas/pkg/models"
)

// Field is a value together with how it was obtained.
type Field[T any] struct {
	Value      T                 `json:"value"`
	Confidence models.Confidence `json:"confidence"`
}

func extracted[T any](v T) Field[T] { return Field[T]{Value: v, Confidence: models.ConfidenceExtracted} }
func defaulted[T any](v T) Field[T] { return Field[T]{Value: v, Confidence: models.ConfidenceDefaulted} }
func missing[T any]() Field[T]      { return Field[T]{Confidence: models.ConfidenceMissing} }

// Extraction holds every extracted field.
type Extraction struct {
	Date          Field[string]                   `json:"date"`
	Counterparty  Field[string]                   `json:"counterparty_name"`
	DeclaredTotal Field[decimal.Decimal]          `json:"declared_total"`
	Items         Field[[]models.InvoiceLineItem] `json:"items"`
	InvoiceType   Field[models.InvoiceType]       `json:"invoice_type"`
}

// Confidence returns the per-field confidence map keyed by the models.Field* names.
func (e *Extraction) Confidence() map[string]models.Confidence {
	return map[string]models.Confidence{
		models.FieldDate:          e.Date.Confidence,
		models.FieldCounterparty:  e.Counterparty.Confidence,
		models.FieldDeclaredTotal: e.DeclaredTotal.Confidence,
		models.FieldItems:         e.Items.Confidence,
		models.FieldInvoiceType:   e.InvoiceType.Confidence,
	}
}

// Record assembles the invoice record, carrying the confidence map as provenance.
func (e *Extraction) Record() *models.InvoiceRecord {
	items := make([]models.InvoiceLineItem, len(e.Items.Value))
	copy(items, e.Items.Value)
	return &models.InvoiceRecord{
		Date:             e.Date.Value,
		CounterpartyName: e.Counterparty.Value,
		Items:            items,
		DeclaredTotal:    e.DeclaredTotal.Value,
		InvoiceType:      e.InvoiceType.Value,
		Provenance:       e.Confidence(),
	}
}

// Extractor reads fields using label vocabularies per invoice type.
type Extractor struct {
	// Now supplies the processing date used when no invoice date is found.
	Now func() time.Time

	roleLabels       map[models.InvoiceType]*labelSet
	placeholders     map[models.InvoiceType]string
	categoryKeywords []categoryKeywords
	log              zerolog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used for the processing-date fallback.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) { x.Now = now }
}

// WithRoleLabels replaces the counterparty labels for one invoice type.
func WithRoleLabels(t models.InvoiceType, labels ...string) Option {
	return func(x *Extractor) { x.roleLabels[t] = newLabelSet(labels) }
}

// WithPlaceholder replaces the counterparty placeholder for one invoice type.
func WithPlaceholder(t models.InvoiceType, name string) Option {
	return func(x *Extractor) { x.placeholders[t] = name }
}

// New creates an extractor with the Colombian label vocabulary.
func New(opts ...Option) *Extractor {
	x := &Extractor{
		Now:              time.Now,
		roleLabels:       make(map[models.InvoiceType]*labelSet),
		placeholders:     make(map[models.InvoiceType]string),
		categoryKeywords: defaultCategoryKeywords(),
		log:              logger.WithComponent("extract"),
	}
	for t, labels := range DefaultRoleLabels() {
		x.roleLabels[t] = newLabelSet(labels)
	}
	for t, name := range DefaultPlaceholders() {
		x.placeholders[t] = name
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// DefaultRoleLabels returns the labels that introduce the counterparty for each invoice type.
func DefaultRoleLabels() map[models.InvoiceType][]string {
	return map[models.InvoiceType][]string{
		models.InvoiceTypeSale: {
			"cliente", "señor(es)", "señores", "señor", "facturar a", "facturado a",
			"adquiriente", "adquirente", "customer", "bill to", "sold to",
		},
		models.InvoiceTypePurchase: {
			"proveedor", "vendedor", "emisor", "razón social", "supplier", "vendor",
		},
		models.InvoiceTypeUtilityService: {
			"empresa", "prestador del servicio", "prestador", "entidad", "proveedor", "company",
		},
	}
}

// DefaultPlaceholders returns the counterparty names used when no label is found.
func DefaultPlaceholders() map[models.InvoiceType]string {
	return map[models.InvoiceType]string{
		models.InvoiceTypeSale:           "Consumidor Final",
		models.InvoiceTypePurchase:       "Proveedor General",
		models.InvoiceTypeUtilityService: "Empresa de Servicios Públicos",
	}
}

// Extract reads every field from normalized text for an invoice of the given type.
func (x *Extractor) Extract(text string, invoiceType models.InvoiceType) *Extraction {
	e := &Extraction{InvoiceType: extracted(invoiceType)}

	if date, ok := findDate(text); ok {
		e.Date = extracted(date)
	} else {
		e.Date = defaulted(x.Now().Format(models.DateLayout))
		x.log.Debug().Str("date", e.Date.Value).Msg("No invoice date found, using processing date")
	}

	if name, ok := x.findCounterparty(text, invoiceType); ok {
		e.Counterparty = extracted(name)
	} else {
		e.Counterparty = defaulted(x.placeholders[invoiceType])
		x.log.Debug().Str("counterparty", e.Counterparty.Value).Msg("No counterparty label found, using placeholder")
	}

	items := x.findItems(text, invoiceType)

	if total, ok := findTotal(text); ok {
		e.DeclaredTotal = extracted(total)
	} else {
		e.DeclaredTotal = missing[decimal.Decimal]()
		x.log.Debug().Int("items", len(items)).Msg("No declared total found")
	}

	if len(items) > 0 {
		e.Items = extracted(items)
	} else {
		e.Items = defaulted([]models.InvoiceLineItem{x.syntheticItem(e.DeclaredTotal.Value, invoiceType)})
		x.log.Debug().Msg("No line items found, synthesizing one from the declared total")
	}

	return e
}

// ExtractClassified extracts with the classifier's verdict, marking the invoice type
// defaulted when the classifier found no cues.
func (x *Extractor) ExtractClassified(text string, c classify.Classification) *Extraction {
	e := x.Extract(text, c.Type)
	if c.LowConfidence {
		e.InvoiceType.Confidence = models.ConfidenceDefaulted
	}
	return e
}

func (x *Extractor) syntheticItem(total decimal.Decimal, invoiceType models.InvoiceType) models.InvoiceLineItem {
	category := models.CategoryGeneral
	if invoiceType == models.InvoiceTypeUtilityService {
		category = models.CategoryUtility
	}
	return models.InvoiceLineItem{
		Description: "Total factura",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   total,
		Category:    category,
	}
}
