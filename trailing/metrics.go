package trailing

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtomtong/comfyTrade/metric"
)

// trailingMetrics holds Prometheus metrics for the trailing controller.
type trailingMetrics struct {
	cycles         *prometheus.CounterVec // By status: run, skipped, degraded
	adjustments    prometheus.Counter
	modifyFailures prometheus.Counter
	tracked        prometheus.Gauge
}

// newTrailingMetrics creates and registers trailing metrics with the
// provided registry. A nil registry disables metrics.
func newTrailingMetrics(registry *metric.MetricsRegistry) (*trailingMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &trailingMetrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "trailing",
			Name:      "cycles_total",
			Help:      "Total number of trailing cycles by outcome",
		}, []string{"status"}),

		adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "trailing",
			Name:      "adjustments_total",
			Help:      "Total number of successful position modifications",
		}),

		modifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "trailing",
			Name:      "modify_failures_total",
			Help:      "Total number of failed or rejected position modifications",
		}),

		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "comfytrade",
			Subsystem: "trailing",
			Name:      "tracked_positions",
			Help:      "Number of positions currently tracked for trailing",
		}),
	}

	if err := registry.RegisterCounterVec("trailing", "cycles", m.cycles); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("trailing", "adjustments", m.adjustments); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("trailing", "modify_failures", m.modifyFailures); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("trailing", "tracked", m.tracked); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *trailingMetrics) recordCycle(status string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(status).Inc()
}

func (m *trailingMetrics) recordAdjustment() {
	if m == nil {
		return
	}
	m.adjustments.Inc()
}

func (m *trailingMetrics) recordFailure() {
	if m == nil {
		return
	}
	m.modifyFailures.Inc()
}

func (m *trailingMetrics) setTracked(n int) {
	if m == nil {
		return
	}
	m.tracked.Set(float64(n))
}
