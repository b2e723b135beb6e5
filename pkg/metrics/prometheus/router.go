package prometheus

import (
	"time"

	"github.com/marmos91/playground/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// routerMetrics is the Prometheus implementation of metrics.RouterMetrics.
type routerMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	suppressedErrors  *prometheus.CounterVec
	mountedSources    prometheus.Gauge
}

// NewRouterMetrics creates a new Prometheus-backed RouterMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewRouterMetrics() metrics.RouterMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopRouterMetrics()
	}

	return newRouterMetrics(metrics.GetRegistry())
}

func newRouterMetrics(reg prometheus.Registerer) *routerMetrics {
	return &routerMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_operations_total",
				Help: "Total number of routed operations by operation, owner, and status",
			},
			[]string{"operation", "owner", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "playground_operation_duration_milliseconds",
				Help: "Duration of routed operations in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"operation", "owner"},
		),
		suppressedErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_suppressed_errors_total",
				Help: "Backend failures dropped from aggregate results",
			},
			[]string{"operation", "owner"},
		),
		mountedSources: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_mounted_sources",
				Help: "Number of data sources in the mount table",
			},
		),
	}
}

func (m *routerMetrics) RecordOperation(operation, owner string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, owner, status).Inc()
	m.operationDuration.WithLabelValues(operation, owner).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *routerMetrics) RecordSuppressedError(operation, owner string) {
	m.suppressedErrors.WithLabelValues(operation, owner).Inc()
}

func (m *routerMetrics) SetMountedSources(count int) {
	m.mountedSources.Set(float64(count))
}
