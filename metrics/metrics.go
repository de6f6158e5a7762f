package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the intake API and its submission store
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	SubmissionsReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_submissions_received_total",
			Help: "Total number of submissions accepted by the form endpoint",
		},
	)

	SubmissionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_invalid_total",
			Help: "Total number of submissions rejected by validation, by error code",
		},
		[]string{"code"},
	)

	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_store_operations_total",
			Help: "Total number of submission store operations by backend, operation and result",
		},
		[]string{"backend", "operation", "result"},
	)

	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_store_operation_duration_seconds",
			Help:    "Duration of submission store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreMode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "intake_store_mode",
			Help: "Set to 1 for the active store mode (database or fallback)",
		},
		[]string{"mode"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(SubmissionsReceivedTotal)
		prometheus.MustRegister(SubmissionsRejectedTotal)
		prometheus.MustRegister(StoreOperationsTotal)
		prometheus.MustRegister(StoreOperationDuration)
		prometheus.MustRegister(StoreMode)
	})
}

// SetStoreMode marks mode as the active one and clears the others
func SetStoreMode(mode string) {
	for _, m := range []string{"database", "fallback"} {
		if m == mode {
			StoreMode.WithLabelValues(m).Set(1)
		} else {
			StoreMode.WithLabelValues(m).Set(0)
		}
	}
}
