package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpClientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainpipe_http_client_requests_total",
			Help: "Total number of outbound HTTP requests.",
		},
		[]string{"host", "method", "status"},
	)

	httpClientRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainpipe_http_client_request_duration_seconds",
			Help:    "Outbound HTTP request latency by host.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpClientRequestsTotal, httpClientRequestDurationSeconds)
}

// WriteTextfile dumps every registered metric in the text exposition format,
// for pickup by the node_exporter textfile collector.
func WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("metrics textfile path is required")
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile %q: %w", path, err)
	}
	return nil
}

func observeHTTPClientRequest(host, method, status string, elapsed time.Duration) {
	httpClientRequestsTotal.WithLabelValues(host, method, status).Inc()
	httpClientRequestDurationSeconds.WithLabelValues(host, method, status).Observe(elapsed.Seconds())
}
