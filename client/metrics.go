package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts logical requests by action and final status
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigquery_requests_total",
			Help: "Total logical requests by action and final HTTP status code",
		},
		[]string{"action", "code"},
	)
)
