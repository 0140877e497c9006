// Package metrics collects run counters for both pipeline stages and writes
// them in the Prometheus textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded per fetched year.
const (
	OutcomeFetched = "fetched"
	OutcomeSkipped = "skipped"
)

// Metrics holds the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	years        *prometheus.CounterVec
	rowsKept     prometheus.Counter
	bytesFetched prometheus.Counter
	rowsRemoved  *prometheus.CounterVec
	rowsCleaned  prometheus.Gauge
}

// New registers all counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		years: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qcew",
			Subsystem: "fetch",
			Name:      "years_total",
			Help:      "Years processed by the fetcher, by outcome.",
		}, []string{"outcome"}),
		rowsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qcew",
			Subsystem: "fetch",
			Name:      "rows_kept_total",
			Help:      "County total rows kept across all archives.",
		}),
		bytesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qcew",
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Response bytes downloaded.",
		}),
		rowsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qcew",
			Subsystem: "clean",
			Name:      "rows_removed_total",
			Help:      "Rows removed by each cleaning stage.",
		}, []string{"stage"}),
		rowsCleaned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qcew",
			Subsystem: "clean",
			Name:      "rows_remaining",
			Help:      "Rows left after all cleaning stages.",
		}),
	}
	m.Registry.MustRegister(m.years, m.rowsKept, m.bytesFetched, m.rowsRemoved, m.rowsCleaned)
	return m
}

// YearDone records one processed year.
func (m *Metrics) YearDone(outcome string, bytes int, rows int) {
	if m == nil {
		return
	}
	m.years.WithLabelValues(outcome).Inc()
	m.bytesFetched.Add(float64(bytes))
	m.rowsKept.Add(float64(rows))
}

// StageRemoved records the rows a cleaning stage dropped.
func (m *Metrics) StageRemoved(stage string, removed int) {
	if m == nil {
		return
	}
	m.rowsRemoved.WithLabelValues(stage).Add(float64(removed))
}

// Remaining records the final cleaned row count.
func (m *Metrics) Remaining(rows int) {
	if m == nil {
		return
	}
	m.rowsCleaned.Set(float64(rows))
}

// WriteTextfile writes the current values to path for a node exporter
// textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
