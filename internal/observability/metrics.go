// Package observability holds the router's Prometheus metrics and its
// OpenTelemetry tracer.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ToolExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolrouter_tool_executions_total",
		Help: "Tool executions recorded by the migration engine, by path and outcome.",
	}, []string{"path", "outcome"})

	ToolExecutionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toolrouter_tool_execution_seconds",
		Help:    "Duration of recorded tool executions.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"path"})

	SlowExecutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolrouter_slow_executions_total",
		Help: "New-path executions slower than the slow-execution threshold.",
	})

	FallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolrouter_fallbacks_total",
		Help: "Tool calls that failed on the new path and were retried on the legacy path.",
	})

	RoutingFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolrouter_routing_failures_total",
		Help: "Tool calls where no execution path succeeded.",
	})

	RollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolrouter_emergency_rollbacks_total",
		Help: "Emergency rollbacks to the legacy path.",
	})

	MigrationState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "toolrouter_migration_state",
		Help: "Current migration state; the active state is 1, all others 0.",
	}, []string{"state"})

	EnabledCategories = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "toolrouter_category_enabled",
		Help: "Whether a tool category is enabled for the new path.",
	}, []string{"category"})

	ConnectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "toolrouter_connection_state",
		Help: "Current protocol client connection state; the active state is 1.",
	}, []string{"state"})

	RegisteredTools = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "toolrouter_registered_tools",
		Help: "Tools currently registered with the protocol client.",
	})

	AdminRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolrouter_admin_requests_total",
		Help: "Admin API requests by route and status code.",
	}, []string{"route", "code"})
)

// SetActive sets the series labelled active to 1 and every other listed
// label to 0.
func SetActive(vec *prometheus.GaugeVec, active string, all ...string) {
	for _, label := range all {
		if label == active {
			vec.WithLabelValues(label).Set(1)
		} else {
			vec.WithLabelValues(label).Set(0)
		}
	}
}
