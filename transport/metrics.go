package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// sendsTotal counts wire sends by endpoint host and status code
	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigquery_sends_total",
			Help: "Total wire sends by endpoint host and HTTP status code",
		},
		[]string{"host", "code"},
	)

	// sendDuration tracks wire send latency by endpoint host
	sendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sigquery_send_duration_seconds",
			Help:    "Wire send latency by endpoint host",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	// sendErrors counts transport-level send failures by error type
	sendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigquery_send_errors_total",
			Help: "Total transport-level send failures by error type",
		},
		[]string{"host", "type"},
	)

	// retriesTotal counts retry attempts by trigger reason
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigquery_retries_total",
			Help: "Total retry attempts by trigger reason (status code or error type)",
		},
		[]string{"reason"},
	)
)
