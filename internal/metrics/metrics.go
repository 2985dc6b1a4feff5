// Package metrics declares the Prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenValidations counts token lookups by result (ok, not_found, expired, rate_limited, error).
	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botscripts_token_validations_total",
			Help: "Total number of token validations",
		},
		[]string{"result"},
	)
	// SyncOperations counts script set mutations by operation (full, partial, delete) and status.
	SyncOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botscripts_sync_operations_total",
			Help: "Total number of script sync operations",
		},
		[]string{"operation", "status"},
	)
	// SyncedScripts counts scripts written or deleted by sync operations.
	SyncedScripts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botscripts_synced_scripts_total",
			Help: "Total number of scripts written or deleted",
		},
		[]string{"operation"},
	)
	// LimiterErrors counts attempt limiter backend failures by call (allow, failure, success).
	LimiterErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botscripts_limiter_errors_total",
			Help: "Total number of attempt limiter storage errors",
		},
		[]string{"call"},
	)
	// RequestDuration is the latency of transport requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "botscripts_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport", "method", "code"},
	)
)

// Status returns the status label for an operation outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
