package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtomtong/comfyTrade/metric"
)

// schedulerMetrics holds Prometheus metrics for flow scheduling.
type schedulerMetrics struct {
	flowsStarted *prometheus.CounterVec // By mode
	flowsStopped prometheus.Counter
	activeFlows  prometheus.Gauge
	ticks        *prometheus.CounterVec // By status: run, skipped
}

// newSchedulerMetrics creates and registers scheduler metrics with the
// provided registry. A nil registry disables metrics.
func newSchedulerMetrics(registry *metric.MetricsRegistry) (*schedulerMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &schedulerMetrics{
		flowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "scheduler",
			Name:      "flows_started_total",
			Help:      "Total number of flows started",
		}, []string{"mode"}),

		flowsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "scheduler",
			Name:      "flows_stopped_total",
			Help:      "Total number of flows stopped",
		}),

		activeFlows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "comfytrade",
			Subsystem: "scheduler",
			Name:      "active_flows",
			Help:      "Number of currently running flows",
		}),

		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of flow ticks by outcome",
		}, []string{"status"}),
	}

	if err := registry.RegisterCounterVec("scheduler", "flows_started", m.flowsStarted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("scheduler", "flows_stopped", m.flowsStopped); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("scheduler", "active_flows", m.activeFlows); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("scheduler", "ticks", m.ticks); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *schedulerMetrics) recordStart(mode Mode) {
	if m == nil {
		return
	}
	m.flowsStarted.WithLabelValues(string(mode)).Inc()
	m.activeFlows.Inc()
}

func (m *schedulerMetrics) recordStop() {
	if m == nil {
		return
	}
	m.flowsStopped.Inc()
	m.activeFlows.Dec()
}

func (m *schedulerMetrics) recordTick(status string) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(status).Inc()
}
