package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtomtong/comfyTrade/engine"
	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/metric"
)

// Mode selects how often a flow runs its trigger.
type Mode string

const (
	// RunOnce executes a single pass and then stops the flow.
	RunOnce Mode = "once"
	// RunPeriodic executes a pass immediately and then on every interval
	// tick until stopped.
	RunPeriodic Mode = "periodic"
)

// Status is the lifecycle state of a flow.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Flow is one scheduled run rooted at a trigger node. Flows are runtime
// only and are not persisted across restarts.
type Flow struct {
	ID             string             `json:"id"`
	TriggerNodeID  string             `json:"trigger_node_id"`
	Mode           Mode               `json:"mode"`
	Interval       time.Duration      `json:"interval,omitempty"`
	Status         Status             `json:"status"`
	StartedAt      time.Time          `json:"started_at"`
	ExecutionCount int64              `json:"execution_count"`
	LastPass       *engine.PassResult `json:"last_pass,omitempty"`
}

// flowRuntime pairs a flow record with its running goroutine.
type flowRuntime struct {
	mu     sync.Mutex
	flow   Flow
	cancel context.CancelFunc
	done   chan struct{}
}

func (rt *flowRuntime) snapshot() Flow {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.flow
}

// Scheduler manages zero or more independently running flows against one
// shared graph. At most one active flow exists per trigger node: starting
// a flow on an already-running trigger stops the prior flow first.
type Scheduler struct {
	engine  *engine.Engine
	graph   *graph.Graph
	logger  *slog.Logger
	metrics *schedulerMetrics

	mu        sync.Mutex
	flows     map[string]*flowRuntime
	byTrigger map[string]string // trigger node id -> active flow id
	closed    bool
}

// New creates a scheduler. metricsRegistry may be nil to disable metrics.
func New(eng *engine.Engine, g *graph.Graph, logger *slog.Logger, metricsRegistry *metric.MetricsRegistry) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newSchedulerMetrics(metricsRegistry)
	if err != nil {
		logger.Error("Failed to initialize scheduler metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	return &Scheduler{
		engine:    eng,
		graph:     g,
		logger:    logger,
		metrics:   metrics,
		flows:     make(map[string]*flowRuntime),
		byTrigger: make(map[string]string),
	}
}

// StartFlow starts a flow rooted at the trigger node. For RunPeriodic the
// interval must be positive. If a flow is already running on the same
// trigger it is stopped before the new one starts, so exactly one active
// flow exists per trigger at any time.
func (s *Scheduler) StartFlow(triggerNodeID string, mode Mode, interval time.Duration) (Flow, error) {
	if _, ok := s.graph.Node(triggerNodeID); !ok {
		return Flow{}, errors.WrapInvalid(errors.ErrNodeNotFound, "scheduler", "StartFlow",
			"trigger node "+triggerNodeID)
	}

	switch mode {
	case RunOnce:
		interval = 0
	case RunPeriodic:
		if interval <= 0 {
			return Flow{}, errors.WrapInvalid(errors.ErrInvalidConfig,
				"scheduler", "StartFlow", "periodic flow requires a positive interval")
		}
	default:
		return Flow{}, errors.WrapInvalid(errors.ErrInvalidConfig,
			"scheduler", "StartFlow", "unknown flow mode "+string(mode))
	}

	// Replace any flow already running on this trigger.
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return Flow{}, errors.WrapInvalid(errors.ErrInvalidConfig,
				"scheduler", "StartFlow", "scheduler is shut down")
		}
		priorID, running := s.byTrigger[triggerNodeID]
		if !running {
			break // Still holding the lock
		}
		s.mu.Unlock()

		s.logger.Info("Stopping prior flow on trigger",
			"trigger", triggerNodeID, "flow_id", priorID)
		if err := s.StopFlow(priorID); err != nil {
			return Flow{}, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt := &flowRuntime{
		flow: Flow{
			ID:            uuid.NewString(),
			TriggerNodeID: triggerNodeID,
			Mode:          mode,
			Interval:      interval,
			Status:        StatusRunning,
			StartedAt:     time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.flows[rt.flow.ID] = rt
	s.byTrigger[triggerNodeID] = rt.flow.ID
	s.mu.Unlock()

	s.metrics.recordStart(mode)
	s.logger.Info("Flow started",
		"flow_id", rt.flow.ID,
		"trigger", triggerNodeID,
		"mode", mode,
		"interval", interval)

	go s.run(ctx, rt)

	return rt.snapshot(), nil
}

// StopFlow cancels the flow's timer and waits for any in-progress pass to
// finish. Stopping an already-stopped flow is a no-op. Unknown flow ids
// return ErrFlowNotFound.
func (s *Scheduler) StopFlow(flowID string) error {
	s.mu.Lock()
	rt, ok := s.flows[flowID]
	s.mu.Unlock()
	if !ok {
		return errors.WrapInvalid(errors.ErrFlowNotFound, "scheduler", "StopFlow",
			"no flow with id "+flowID)
	}

	rt.cancel()
	<-rt.done
	return nil
}

// StopAll stops every flow and shuts the scheduler down. Subsequent
// StartFlow calls fail.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	s.closed = true
	rts := make([]*flowRuntime, 0, len(s.flows))
	for _, rt := range s.flows {
		rts = append(rts, rt)
	}
	s.mu.Unlock()

	for _, rt := range rts {
		rt.cancel()
	}
	for _, rt := range rts {
		<-rt.done
	}
}

// Flows lists all flows, running and stopped, ordered by start time.
func (s *Scheduler) Flows() []Flow {
	s.mu.Lock()
	rts := make([]*flowRuntime, 0, len(s.flows))
	for _, rt := range s.flows {
		rts = append(rts, rt)
	}
	s.mu.Unlock()

	out := make([]Flow, 0, len(rts))
	for _, rt := range rts {
		out = append(out, rt.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Flow returns one flow by id.
func (s *Scheduler) Flow(flowID string) (Flow, error) {
	s.mu.Lock()
	rt, ok := s.flows[flowID]
	s.mu.Unlock()
	if !ok {
		return Flow{}, errors.WrapInvalid(errors.ErrFlowNotFound, "scheduler", "Flow",
			"no flow with id "+flowID)
	}
	return rt.snapshot(), nil
}

// run is the per-flow goroutine: one immediate pass, then for periodic
// flows a pass per tick until cancelled. A tick that fires while the
// previous pass is still running is skipped, not queued.
func (s *Scheduler) run(ctx context.Context, rt *flowRuntime) {
	defer close(rt.done)
	defer s.finish(rt)

	s.tick(ctx, rt)

	if rt.flow.Mode != RunPeriodic {
		return
	}

	ticker := time.NewTicker(rt.flow.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, rt)

			// Drop the tick that queued while the pass ran, if any.
			select {
			case <-ticker.C:
				s.metrics.recordTick("skipped")
				s.logger.Debug("Skipped overlapping tick",
					"flow_id", rt.flow.ID, "trigger", rt.flow.TriggerNodeID)
			default:
			}
		}
	}
}

// tick runs one engine pass and folds the result into the flow record.
func (s *Scheduler) tick(ctx context.Context, rt *flowRuntime) {
	if ctx.Err() != nil {
		return
	}

	res := s.engine.RunPass(ctx, s.graph, rt.flow.TriggerNodeID)
	s.metrics.recordTick("run")

	rt.mu.Lock()
	rt.flow.ExecutionCount++
	rt.flow.LastPass = res
	rt.mu.Unlock()

	if !res.Success {
		s.logger.Warn("Flow pass failed",
			"flow_id", rt.flow.ID,
			"trigger", rt.flow.TriggerNodeID,
			"failures", len(res.Failures))
	}
}

// finish marks the flow stopped and releases its trigger slot.
func (s *Scheduler) finish(rt *flowRuntime) {
	rt.mu.Lock()
	rt.flow.Status = StatusStopped
	rt.mu.Unlock()

	s.mu.Lock()
	if s.byTrigger[rt.flow.TriggerNodeID] == rt.flow.ID {
		delete(s.byTrigger, rt.flow.TriggerNodeID)
	}
	s.mu.Unlock()

	s.metrics.recordStop()
	s.logger.Info("Flow stopped",
		"flow_id", rt.flow.ID,
		"trigger", rt.flow.TriggerNodeID,
		"executions", rt.snapshot().ExecutionCount)
}
