// Package health aggregates liveness information for the application's
// long-running parts: the terminal bridge connection, the flow scheduler
// and the trailing controller. The aggregate is served as JSON for
// operational probes.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status is the health of one subsystem.
type Status struct {
	Component string    `json:"component"`
	Healthy   bool      `json:"healthy"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Checker reports the current health of one subsystem.
type Checker func() Status

// Monitor evaluates registered checkers on demand.
type Monitor struct {
	mu       sync.Mutex
	checkers []Checker
	started  time.Time
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{started: time.Now()}
}

// Register adds a checker. Registration order is report order.
func (m *Monitor) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Report is the aggregate health of the application.
type Report struct {
	Healthy    bool          `json:"healthy"`
	Uptime     time.Duration `json:"uptime"`
	Components []Status      `json:"components"`
}

// Check evaluates every checker. The aggregate is healthy only when all
// components are.
func (m *Monitor) Check() Report {
	m.mu.Lock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	started := m.started
	m.mu.Unlock()

	report := Report{
		Healthy: true,
		Uptime:  time.Since(started),
	}
	for _, c := range checkers {
		status := c()
		if !status.Healthy {
			report.Healthy = false
		}
		report.Components = append(report.Components, status)
	}
	return report
}

// Handler serves the health report. Unhealthy aggregates answer 503.
func (m *Monitor) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		report := m.Check()

		w.Header().Set("Content-Type", "application/json")
		if !report.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
}

// BoolChecker adapts a connectivity probe into a checker.
func BoolChecker(component string, probe func() bool) Checker {
	return func() Status {
		healthy := probe()
		message := ""
		if !healthy {
			message = "not connected"
		}
		return Status{
			Component: component,
			Healthy:   healthy,
			Message:   message,
			Timestamp: time.Now(),
		}
	}
}
