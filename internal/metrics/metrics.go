// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"         // Collector types
	"github.com/prometheus/client_golang/prometheus/promauto" // Auto-registering constructors
)

var (
	// HTTPRequests counts finished requests by route, method and status code
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cbms",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency by route and method
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cbms",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// LedgerEvents counts committed ledger events such as fund_request.approved
	LedgerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cbms",
		Name:      "ledger_events_total",
		Help:      "Committed ledger events by name.",
	}, []string{"event"})

	// NotificationsCreated counts notification rows by type
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cbms",
		Name:      "notifications_created_total",
		Help:      "Notification rows written by type.",
	}, []string{"type"})
)
