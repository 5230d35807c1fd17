package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the preprocessing service.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DatasetsIngested prometheus.Counter
	RowsIngested     prometheus.Counter
	StepsApplied     *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
}

// NewMetrics builds a fresh registry with all service collectors registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mlstudio_http_requests_total",
			Help: "HTTP requests by method, route pattern, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mlstudio_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DatasetsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "mlstudio_datasets_ingested_total",
			Help: "Datasets successfully parsed into tables.",
		}),
		RowsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "mlstudio_rows_ingested_total",
			Help: "Rows accepted across all ingested datasets.",
		}),
		StepsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mlstudio_pipeline_steps_applied_total",
			Help: "Pipeline steps applied, by step type.",
		}, []string{"type"}),
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mlstudio_pipeline_step_duration_seconds",
			Help:    "Pipeline step execution latency, by step type.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"type"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mlstudio_active_sessions",
			Help: "Preprocessing sessions currently alive.",
		}),
	}
}
