package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtomtong/comfyTrade/metric"
)

// passMetrics holds Prometheus metrics for engine passes.
type passMetrics struct {
	passes        *prometheus.CounterVec // By trigger node and status
	nodesExecuted prometheus.Counter
	nodeFailures  *prometheus.CounterVec // By node type
	passDuration  *prometheus.HistogramVec
}

// newPassMetrics creates and registers engine metrics with the provided
// registry. A nil registry disables metrics.
func newPassMetrics(registry *metric.MetricsRegistry) (*passMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &passMetrics{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "engine",
			Name:      "passes_total",
			Help:      "Total number of graph execution passes",
		}, []string{"trigger", "status"}), // status: success, failure, skipped

		nodesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "engine",
			Name:      "nodes_executed_total",
			Help:      "Total number of node executions across all passes",
		}),

		nodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "engine",
			Name:      "node_failures_total",
			Help:      "Total number of per-node execution failures",
		}, []string{"type_id"}),

		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "comfytrade",
			Subsystem: "engine",
			Name:      "pass_duration_seconds",
			Help:      "Graph pass duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"trigger"}),
	}

	if err := registry.RegisterCounterVec("engine", "passes", m.passes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("engine", "nodes_executed", m.nodesExecuted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "node_failures", m.nodeFailures); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("engine", "pass_duration", m.passDuration); err != nil {
		return nil, err
	}

	return m, nil
}

// recordPass records the aggregate outcome of one pass.
func (m *passMetrics) recordPass(res *PassResult) {
	if m == nil {
		return
	}

	status := "success"
	switch {
	case res.Skipped:
		status = "skipped"
	case !res.Success:
		status = "failure"
	}

	m.passes.WithLabelValues(res.TriggerNode, status).Inc()
	m.nodesExecuted.Add(float64(res.NodesExecuted))
	m.passDuration.WithLabelValues(res.TriggerNode).Observe(res.Duration.Seconds())
}

// recordNodeFailure counts one per-node failure.
func (m *passMetrics) recordNodeFailure(typeID string) {
	if m == nil {
		return
	}
	m.nodeFailures.WithLabelValues(typeID).Inc()
}
