package config

import (
	"github.com/marmos91/playground/pkg/metrics"
	promMetrics "github.com/marmos91/playground/pkg/metrics/prometheus"
)

// MetricsResult bundles what InitializeMetrics builds.
type MetricsResult struct {
	// Server serves /metrics. Nil when metrics are disabled.
	Server *metrics.Server

	// RouterMetrics is handed to the playground. Never nil.
	RouterMetrics metrics.RouterMetrics
}

// InitializeMetrics sets up Prometheus collection when cfg.Metrics.Enabled
// is true: the global registry, the HTTP server on cfg.Metrics.Port and
// the router collectors. Otherwise it returns no-op router metrics and no
// server.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{RouterMetrics: metrics.NewNoopRouterMetrics()}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:        metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port}),
		RouterMetrics: promMetrics.NewRouterMetrics(),
	}
}
