package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainpipe_query_duration_seconds",
			Help:    "Warehouse query latency by dataset.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"dataset"},
	)
	queryRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chainpipe_query_rows",
			Help: "Rows returned by the latest query of each dataset.",
		},
		[]string{"dataset"},
	)
	payloadBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chainpipe_payload_bytes",
			Help: "Size of the latest CSV payload of each dataset.",
		},
		[]string{"dataset"},
	)
	publishOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpipe_publish_operations_total",
			Help: "Total number of remote table operations by dataset, operation and outcome.",
		},
		[]string{"dataset", "operation", "outcome"},
	)
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpipe_runs_total",
			Help: "Total number of pipeline runs by status.",
		},
		[]string{"status"},
	)
	runDurationSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainpipe_run_duration_seconds",
			Help: "Wall-clock duration of the latest pipeline run.",
		},
	)
	lastSuccessTimestampSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainpipe_last_success_timestamp_seconds",
			Help: "Unix time of the latest successful pipeline run.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queryDurationSeconds,
		queryRows,
		payloadBytes,
		publishOperationsTotal,
		runsTotal,
		runDurationSeconds,
		lastSuccessTimestampSeconds,
	)
}

func ObserveQuery(dataset string, rows int, elapsed time.Duration) {
	queryDurationSeconds.WithLabelValues(dataset).Observe(elapsed.Seconds())
	queryRows.WithLabelValues(dataset).Set(float64(rows))
}

func ObservePayload(dataset string, size int) {
	payloadBytes.WithLabelValues(dataset).Set(float64(size))
}

func IncrementPublishOperation(dataset, operation, outcome string) {
	publishOperationsTotal.WithLabelValues(dataset, operation, outcome).Inc()
}

func ObserveRun(status string, elapsed time.Duration, finishedAt time.Time) {
	if elapsed < 0 {
		elapsed = 0
	}
	runsTotal.WithLabelValues(status).Inc()
	runDurationSeconds.Set(elapsed.Seconds())
	if status == "succeeded" {
		lastSuccessTimestampSeconds.Set(float64(finishedAt.Unix()))
	}
}
