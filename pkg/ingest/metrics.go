package ingest

import "github.com/prometheus/client_golang/prometheus"

const metricNamespace = "cloudsaver"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs by source and result kind.",
		},
		[]string{"source", "result"},
	)

	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "ingest_records_written_total",
			Help:      "Cost records inserted or changed by ingestion.",
		},
		[]string{"source"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of an ingestion run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 30},
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(recordsTotal)
	prometheus.MustRegister(runDuration)
}
