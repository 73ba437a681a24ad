package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TotalsComputedTotal counts totals computations by regime and supply kind.
	TotalsComputedTotal *prometheus.CounterVec
	// ItemEditsTotal counts line item edits by field.
	ItemEditsTotal *prometheus.CounterVec
	// ExportsTotal counts document renders by format and result.
	ExportsTotal *prometheus.CounterVec
	// ExportLatency records render latency in milliseconds.
	ExportLatency *prometheus.HistogramVec
	// FXLookupsTotal counts exchange-rate answers by the source that served them.
	FXLookupsTotal *prometheus.CounterVec
	// InvoiceNumbersTotal counts issued invoice numbers by allocation mode.
	InvoiceNumbersTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers invoice-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TotalsComputedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "totals_computed_total",
			Help:      "Count of invoice totals computations.",
		}, []string{"regime", "supply"}))
		ItemEditsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_item_edits_total",
			Help:      "Count of line item edits by field.",
		}, []string{"regime", "field"}))
		ExportsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Count of invoice document renders.",
		}, []string{"format", "result"}))
		ExportLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_ms",
			Help:      "Latency for invoice document renders in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"format"}))
		FXLookupsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fx_lookups_total",
			Help:      "Count of exchange-rate lookups by serving source.",
		}, []string{"base", "source"}))
		InvoiceNumbersTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_numbers_total",
			Help:      "Count of issued invoice numbers by allocation mode.",
		}, []string{"mode"}))
	})
}

// The helpers below are no-ops until MustRegisterDomainMetrics has run, so
// packages can record unconditionally.

// ObserveTotals records one totals computation.
func ObserveTotals(regime, supply string) {
	if TotalsComputedTotal != nil {
		TotalsComputedTotal.WithLabelValues(regime, supply).Inc()
	}
}

// ObserveItemEdit records one line item edit.
func ObserveItemEdit(regime, field string) {
	if ItemEditsTotal != nil {
		ItemEditsTotal.WithLabelValues(regime, field).Inc()
	}
}

// ObserveExport records a render outcome and its latency.
func ObserveExport(format string, err error, took time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	if ExportsTotal != nil {
		ExportsTotal.WithLabelValues(format, result).Inc()
	}
	if ExportLatency != nil {
		ExportLatency.WithLabelValues(format).Observe(DurationMillis(took))
	}
}

// ObserveFX records which source served a rate lookup.
func ObserveFX(base, source string) {
	if FXLookupsTotal != nil {
		FXLookupsTotal.WithLabelValues(base, source).Inc()
	}
}

// ObserveInvoiceNumber records an issued invoice number.
func ObserveInvoiceNumber(mode string) {
	if InvoiceNumbersTotal != nil {
		InvoiceNumbersTotal.WithLabelValues(mode).Inc()
	}
}
