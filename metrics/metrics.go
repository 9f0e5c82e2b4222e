// Package metrics provides Prometheus metrics for conversion runs and the ops server.
//
// Run metrics:
//   - rxnorm_rows_total: rows read per input file, labelled by outcome
//   - rxnorm_resources_total: resources emitted per resource type
//   - rxnorm_stage_duration_seconds: duration of each pipeline stage
//   - rxnorm_runs_total: runs by status
//   - rxnorm_last_run_timestamp_seconds / rxnorm_units_of_measure
//
// Ops server metrics follow the http_request_* naming.
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_rows_total",
			Help: "Rows read from the RRF files",
		},
		[]string{"file", "outcome"},
	)

	ResourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_resources_total",
			Help: "FHIR resources emitted",
		},
		[]string{"resource_type"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rxnorm_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxnorm_runs_total",
			Help: "Conversion runs by status",
		},
		[]string{"status"},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rxnorm_last_run_timestamp_seconds",
			Help: "Unix time of the last successful run",
		},
	)

	UnitsOfMeasure = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rxnorm_units_of_measure",
			Help: "Distinct strength units seen in the last run",
		},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)
)

func init() {
	prometheus.MustRegister(RowsTotal)
	prometheus.MustRegister(ResourcesTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(UnitsOfMeasure)
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
}

// WriteTextfile dumps the default registry in the node exporter textfile format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
