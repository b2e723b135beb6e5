// Package metrics holds the optional Prometheus instrumentation of the
// playground router and the HTTP endpoint serving it.
//
// Nothing is collected until InitRegistry is called; until then
// NewNoopRouterMetrics is the sink every component falls back to:
//
//	metrics.InitRegistry()
//	pg := playground.New(loader, playground.WithMetrics(prometheus.NewRouterMetrics()))
//	go metrics.NewServer(metrics.ServerConfig{Port: 9090}).Start(ctx)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry. Later calls are no-ops.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the registry, nil until InitRegistry ran.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry ran.
func IsEnabled() bool {
	return registry != nil
}
