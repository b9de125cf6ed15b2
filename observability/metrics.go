// Package observability holds the Prometheus collectors shared by the HTTP
// layer, the service and the store cache.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pollchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pollchat_messages_appended_total",
			Help: "Total messages appended to the log",
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollchat_store_errors_total",
			Help: "Store failures by operation",
		},
		[]string{"op"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollchat_cache_requests_total",
			Help: "Message cache lookups",
		},
		[]string{"result"}, // "hit" or "miss"
	)
)

var (
	LogMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollchat_log_messages",
			Help: "Messages in the log at the last heartbeat",
		},
	)

	LogCursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollchat_log_cursor",
			Help: "Newest sequence in the log at the last heartbeat",
		},
	)

	ProcessRSS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollchat_process_rss_bytes",
			Help: "Resident memory of the server process",
		},
	)

	ProcessCPU = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pollchat_process_cpu_percent",
			Help: "CPU usage of the server process",
		},
	)
)
