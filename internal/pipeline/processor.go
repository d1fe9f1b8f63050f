// Package pipeline runs the normalize, classify, extract, validate and tax stages for
// one document, and fans batches of documents out over a fixed worker pool.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"facturas/internal/classify"
	"facturas/internal/extract"
	"facturas/internal/logger"
	"facturas/internal/normalize"
	"facturas/internal/tax"
	"facturas/internal/taxconfig"
	"facturas/internal/validate"
	"facturas/pkg/models"
)

// Document is raw invoice text with the city whose ICA rate applies.
type Document struct {
	Name string `json:"name"`
	Text string `json:"text"`
	City string `json:"city"`
}

// Status summarizes a result for reporting.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Result is everything derived from one document.
type Result struct {
	ID             string                  `json:"id"`
	Index          int                     `json:"-"`
	Document       string                  `json:"document"`
	City           string                  `json:"city"`
	ProcessedAt    time.Time               `json:"processed_at"`
	Classification classify.Classification `json:"classification"`
	Extraction     *extract.Extraction     `json:"extraction,omitempty"`
	Record         *models.InvoiceRecord   `json:"record,omitempty"`
	Validation     validate.Result         `json:"validation"`
	Breakdown      *models.TaxBreakdown    `json:"tax,omitempty"`
	Status         Status                  `json:"status"`
	Error          error                   `json:"-"`
}

// InvoiceType returns the classified type, or an empty type when nothing was processed.
func (r *Result) InvoiceType() models.InvoiceType {
	if r.Record == nil {
		return ""
	}
	return r.Record.InvoiceType
}

// ErrorMessage returns the error text, or "" when processing succeeded.
func (r *Result) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Error()
}

// ProgressFunc is called after each batch document completes. Calls are serialized.
type ProgressFunc func(done, total int, r *Result)

// Processor runs documents through every stage against one tax configuration.
type Processor struct {
	classifier  *classify.Classifier
	extractor   *extract.Extractor
	engine      *tax.Engine
	defaultCity string
	metrics     *Metrics
	progress    ProgressFunc
	now         func() time.Time
	newID       func() string
	log         zerolog.Logger
}

// Option customises a Processor.
type Option func(*Processor)

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(p *Processor) { p.classifier = c }
}

// WithExtractor replaces the default extractor.
func WithExtractor(x *extract.Extractor) Option {
	return func(p *Processor) { p.extractor = x }
}

// WithDefaultCity sets the city used for documents that name none.
func WithDefaultCity(city string) Option {
	return func(p *Processor) { p.defaultCity = city }
}

// WithMetrics records outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithProgress reports batch progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) { p.progress = fn }
}

// WithClock sets the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a processor computing taxes under cfg.
func NewProcessor(cfg *taxconfig.TaxConfig, opts ...Option) *Processor {
	p := &Processor{
		classifier: classify.NewDefault(),
		extractor:  extract.New(),
		engine:     tax.NewEngine(cfg),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
		log:        logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the tax configuration the processor computes with.
func (p *Processor) Config() *taxconfig.TaxConfig {
	return p.engine.Config()
}

// Classify normalizes text and classifies it without extracting.
func (p *Processor) Classify(text string) classify.Classification {
	return p.classifier.Classify(normalize.Normalize(text))
}

// Process runs one document through every stage. Tax is computed only for valid
// records. A validation failure is reported in the result, not as an error. The
// returned error is non-nil only for hard failures, and the result is still returned
// alongside it.
func (p *Processor) Process(ctx context.Context, doc Document) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapProcessingError("Process", doc.Name, err)
	}

	start := time.Now()
	city := doc.City
	if strings.TrimSpace(city) == "" {
		city = p.defaultCity
	}
	result := &Result{
		ID:          p.newID(),
		Document:    doc.Name,
		City:        city,
		ProcessedAt: p.now(),
	}
	log := p.log.With().Str("invoice_id", result.ID).Str("document", doc.Name).Logger()

	text := normalize.Normalize(doc.Text)
	result.Classification = p.classifier.Classify(text)
	result.Extraction = p.extractor.ExtractClassified(text, result.Classification)
	result.Record = result.Extraction.Record()
	result.Validation = validate.Validate(result.Record)

	log.Debug().
		Str("invoice_type", string(result.Record.InvoiceType)).
		Bool("low_confidence", result.Classification.LowConfidence).
		Interface("confidence", result.Record.Provenance).
		Msg("Invoice extracted")

	var err error
	if !result.Validation.Valid {
		result.Error = fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(result.Validation.Failures(), "; "))
		log.Warn().Strs("errors", result.Validation.Errors).Msg("Invoice failed validation")
	} else {
		result.Breakdown, err = p.engine.Compute(result.Record, city)
		if err != nil {
			err = WrapProcessingError("Process", doc.Name, err)
			result.Error = err
		}
	}
	result.Status = statusOf(result)

	p.metrics.observe(result, time.Since(start))
	log.Info().
		Str("invoice_type", string(result.Record.InvoiceType)).
		Str("status", string(result.Status)).
		Str("city", city).
		Msg("Invoice processed")

	return result, err
}

func statusOf(r *Result) Status {
	switch {
	case r.Error != nil:
		return StatusError
	case len(r.Validation.Warnings()) > 0:
		return StatusWarning
	case r.Breakdown != nil && r.Breakdown.ComplianceStatus != models.StatusCompliant:
		return StatusWarning
	}
	return StatusSuccess
}
