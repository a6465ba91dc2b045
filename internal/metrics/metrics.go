// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classaccess",
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Requests sent to the ClassAccess REST API by endpoint and status code.",
	}, []string{"endpoint", "code"})

	backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "classaccess",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Latency of requests to the ClassAccess REST API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// StaleSnapshots counts attendance fetches discarded because a newer
	// fetch started after them.
	StaleSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classaccess",
		Subsystem: "attendance",
		Name:      "stale_snapshots_total",
		Help:      "Attendance fetch results discarded in favour of a newer fetch.",
	})

	// RateLimited counts requests rejected by the rate limiter, by scope.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classaccess",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"scope"})

	// Notifications counts notification jobs by outcome: queued, sent, failed.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classaccess",
		Subsystem: "notifications",
		Name:      "jobs_total",
		Help:      "Notification jobs by outcome.",
	}, []string{"outcome"})
)

// ObserveBackend records one backend call. code is 0 for transport errors.
func ObserveBackend(endpoint string, code int, elapsed time.Duration) {
	backendRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	backendLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
