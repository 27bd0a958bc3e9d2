package txaudit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gofhir/txaudit/pkg/result"
)

const namespace = "txaudit"

// Metrics holds the Prometheus collectors for one audit process. Each
// Metrics owns a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ResultsTotal       *prometheus.CounterVec
	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration prometheus.Histogram
	FilesTotal         *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Audit rows produced, by result label",
		}, []string{"result"}),
		RemoteCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "$validate-code calls, by outcome",
		}, []string{"outcome"}),
		RemoteCallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of $validate-code calls in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		}),
		FilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Resource files processed, by status",
		}, []string{"status"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCall records one remote call.
func (m *Metrics) ObserveCall(outcome string, elapsed time.Duration) {
	m.RemoteCallsTotal.WithLabelValues(outcome).Inc()
	m.RemoteCallDuration.Observe(elapsed.Seconds())
}

// ObserveFile records one processed file.
func (m *Metrics) ObserveFile(status string, _ int) {
	m.FilesTotal.WithLabelValues(status).Inc()
}

// ObserveResults records a label per row.
func (m *Metrics) ObserveResults(rows []result.ValidationResult) {
	for label, n := range result.Tally(rows) {
		if n > 0 {
			m.ResultsTotal.WithLabelValues(string(label)).Add(float64(n))
		}
	}
}

// WriteToTextfile writes the registry in the node_exporter textfile
// collector format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
