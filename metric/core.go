package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains platform-level metrics shared across components.
// Component-specific metrics (engine passes, scheduler ticks, trailing
// adjustments) live next to their components and register through the
// MetricsRegistry.
type Metrics struct {
	BridgeConnected       prometheus.Gauge
	BridgeRequests        *prometheus.CounterVec
	BridgeRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the core platform metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		BridgeConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "comfytrade",
			Subsystem: "bridge",
			Name:      "connected",
			Help:      "Terminal bridge connectivity (0=disconnected, 1=connected)",
		}),

		BridgeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "comfytrade",
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "Total number of terminal bridge RPCs",
		}, []string{"method", "status"}), // status: ok, rejected, error

		BridgeRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "comfytrade",
			Subsystem: "bridge",
			Name:      "request_duration_seconds",
			Help:      "Terminal bridge RPC duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"method"}),
	}
}

// Register registers the core metrics with a registry.
func (m *Metrics) Register(registry *MetricsRegistry) error {
	if registry == nil {
		return nil
	}
	if err := registry.RegisterGauge("bridge", "connected", m.BridgeConnected); err != nil {
		return err
	}
	if err := registry.RegisterCounterVec("bridge", "requests", m.BridgeRequests); err != nil {
		return err
	}
	return registry.RegisterHistogramVec("bridge", "request_duration", m.BridgeRequestDuration)
}

// RecordBridgeRequest records one bridge RPC.
func (m *Metrics) RecordBridgeRequest(method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BridgeRequests.WithLabelValues(method, status).Inc()
	m.BridgeRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// SetBridgeConnected updates the connectivity gauge.
func (m *Metrics) SetBridgeConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.BridgeConnected.Set(1)
	} else {
		m.BridgeConnected.Set(0)
	}
}
