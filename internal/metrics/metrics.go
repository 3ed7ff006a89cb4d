package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store operation metrics
	storeOperationsTotal   *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// StoreMetrics provides methods to record secret store metrics.
type StoreMetrics struct{}

// NewStoreMetrics creates a new StoreMetrics instance.
// Recording is a no-op until Init has run.
func NewStoreMetrics() *StoreMetrics {
	return &StoreMetrics{}
}

// Init registers all Prometheus metrics. Call once at startup when metrics
// are enabled.
func Init() {
	metricsOnce.Do(func() {
		storeOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretctl_store_operations_total",
				Help: "Total number of secret store operations",
			},
			[]string{"store", "operation", "outcome"},
		)

		storeOperationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secretctl_store_operation_duration_seconds",
				Help:    "Duration of secret store operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"store", "operation"},
		)

		metricsRegistered = true
	})
}

// RecordOperation records one store call with its outcome and duration.
func (m *StoreMetrics) RecordOperation(store, operation, outcome string, durationSeconds float64) {
	if !metricsRegistered {
		return
	}

	if storeOperationsTotal != nil {
		storeOperationsTotal.WithLabelValues(store, operation, outcome).Inc()
	}

	if storeOperationDuration != nil {
		storeOperationDuration.WithLabelValues(store, operation).Observe(durationSeconds)
	}
}

// GetStoreOperationsTotal returns the operations counter for testing.
func GetStoreOperationsTotal() *prometheus.CounterVec {
	return storeOperationsTotal
}

// GetStoreOperationDuration returns the duration histogram for testing.
func GetStoreOperationDuration() *prometheus.HistogramVec {
	return storeOperationDuration
}

// IsRegistered returns whether metrics have been initialized.
func IsRegistered() bool {
	return metricsRegistered
}
