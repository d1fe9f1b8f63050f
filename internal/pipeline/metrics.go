package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures invoice processing outcomes.
type Metrics struct {
	processed          *prometheus.CounterVec
	validationFailures prometheus.Counter
	compliance         *prometheus.CounterVec
	engineFailures     prometheus.Counter
	duration           prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with registerer.
// A nil registerer uses the default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturas_invoices_processed_total",
			Help: "Invoices processed by detected type and outcome status.",
		}, []string{"invoice_type", "status"}),
		validationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facturas_validation_failures_total",
			Help: "Invoices rejected by structural validation.",
		}),
		compliance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facturas_compliance_status_total",
			Help: "Tax breakdowns by compliance status.",
		}, []string{"compliance_status"}),
		engineFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facturas_tax_engine_failures_total",
			Help: "Hard tax engine failures such as negative computed amounts.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "facturas_processing_duration_seconds",
			Help:    "Time to normalize, extract, validate and compute one invoice.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}),
	}

	registerer.MustRegister(
		m.processed,
		m.validationFailures,
		m.compliance,
		m.engineFailures,
		m.duration,
	)
	return m
}

func (m *Metrics) observe(r *Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.processed.WithLabelValues(string(r.InvoiceType()), string(r.Status)).Inc()
	if !r.Validation.Valid {
		m.validationFailures.Inc()
	}
	if r.Breakdown != nil {
		m.compliance.WithLabelValues(string(r.Breakdown.ComplianceStatus)).Inc()
	}
	if r.Error != nil && r.Validation.Valid {
		m.engineFailures.Inc()
	}
}
