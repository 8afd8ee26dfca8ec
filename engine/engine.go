package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tomtomtong/comfyTrade/bridge"
	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/metric"
	"github.com/tomtomtong/comfyTrade/node"
)

// PluginStoreProvider returns the persistent key-value store scoped to one
// plugin id. Built-in node types share the reserved "builtin" namespace.
type PluginStoreProvider func(pluginID string) node.PluginStore

// NodeFailure records one node's failure during a pass. Failures are local:
// they halt the failing branch, not the pass.
type NodeFailure struct {
	NodeID  string `json:"node_id"`
	TypeID  string `json:"type_id"`
	Message string `json:"message"`
}

// PassResult aggregates one trigger-rooted pass over the graph.
type PassResult struct {
	TriggerNode   string        `json:"trigger_node"`
	NodesExecuted int           `json:"nodes_executed"`
	Executed      []string      `json:"executed,omitempty"`
	Failures      []NodeFailure `json:"failures,omitempty"`
	Skipped       bool          `json:"skipped,omitempty"`
	Success       bool          `json:"success"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// Engine executes trigger-rooted passes over a graph. It is stateless
// between passes: every pass runs against its own graph snapshot and its
// own node-output state, so concurrently scheduled flows cannot corrupt
// each other.
type Engine struct {
	registry *node.Registry
	terminal bridge.Terminal
	notify   node.Notifier
	stores   PluginStoreProvider
	logger   *slog.Logger
	metrics  *passMetrics
}

// NewEngine creates an execution engine. notify and stores may be nil;
// notifications are then dropped and node stores are in-memory no-ops.
func NewEngine(
	registry *node.Registry,
	terminal bridge.Terminal,
	notify node.Notifier,
	stores PluginStoreProvider,
	logger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry,
) *Engine {
	if notify == nil {
		notify = func(string, node.NotifyLevel) {}
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newPassMetrics(metricsRegistry)
	if err != nil {
		logger.Error("Failed to initialize engine metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	return &Engine{
		registry: registry,
		terminal: terminal,
		notify:   notify,
		stores:   stores,
		logger:   logger,
		metrics:  metrics,
	}
}

// runState is the pass-local execution state of one node.
type runState struct {
	output any
	result bool
	at     time.Time
}

// RunPass executes one pass rooted at the trigger node. The traversal is
// depth-first over trigger connections with an explicit work stack, and a
// per-pass visited set breaks cycles: a node already visited in this pass is
// not re-executed. The pass result is also written back to the graph's
// display fields once, after the traversal.
func (e *Engine) RunPass(ctx context.Context, g *graph.Graph, triggerID string) *PassResult {
	start := time.Now()
	res := &PassResult{
		TriggerNode: triggerID,
		StartedAt:   start,
		Success:     true,
	}
	defer func() {
		res.Duration = time.Since(start)
		e.metrics.recordPass(res)
	}()

	if g == nil || triggerID == "" {
		res.Success = false
		res.Failures = append(res.Failures, NodeFailure{NodeID: triggerID, Message: "no trigger node specified"})
		return res
	}

	snap := g.Snapshot()

	trigger, ok := snap.Node(triggerID)
	if !ok {
		res.Success = false
		res.Failures = append(res.Failures, NodeFailure{
			NodeID:  triggerID,
			Message: "trigger node not found",
		})
		return res
	}

	// A disabled trigger ends the pass with zero side effects. Reported,
	// not an error.
	if !trigger.Params.Bool("enabled", true) {
		res.Skipped = true
		e.logger.Debug("Trigger disabled, pass skipped", "trigger", triggerID)
		return res
	}

	state := make(map[string]*runState)
	ec := newExecContext(e, snap, state)
	visited := make(map[string]bool, len(snap.Nodes()))
	stack := []string{triggerID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		n, ok := snap.Node(id)
		if !ok {
			continue // connection to a node removed before the snapshot
		}

		t, err := e.registry.Resolve(n.TypeID)
		if err != nil {
			// Unresolved type: skip the node, not the run.
			e.recordFailure(res, n, fmt.Sprintf("node type %q not found", n.TypeID))
			if id == triggerID {
				res.Success = false
			}
			continue
		}

		outcome, execErr := e.executeNode(ctx, t, n, ec)
		res.NodesExecuted++
		res.Executed = append(res.Executed, id)
		// Execute writes its output onto the pass-local node clone; collect
		// it for the post-pass write-back.
		state[id] = &runState{
			output: n.OutputData,
			result: execErr == nil && outcome.Continue,
			at:     time.Now(),
		}

		if execErr != nil {
			e.recordFailure(res, n, execErr.Error())
			if id == triggerID {
				res.Success = false
			}
			continue // halt this branch, other branches keep going
		}
		if !outcome.Continue {
			continue
		}

		next := e.downstream(snap, t, n.ID, outcome.Output)
		// Push in reverse so the first declared output and first inserted
		// connection are executed first.
		for i := len(next) - 1; i >= 0; i-- {
			if !visited[next[i]] {
				stack = append(stack, next[i])
			}
		}
	}

	applied := make(map[string]graph.NodeState, len(state))
	for id, st := range state {
		applied[id] = graph.NodeState{Output: st.output, Result: st.result, ExecutedAt: st.at}
	}
	g.ApplyResults(applied)

	return res
}

// executeNode runs one node's Execute with panic isolation and resolves the
// node's primary data input beforehand.
func (e *Engine) executeNode(
	ctx context.Context, t *node.Type, n *graph.Node, ec *execContext,
) (outcome node.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = node.Halt()
			err = fmt.Errorf("node panicked: %v", r)
		}
	}()

	var input any
	for i, kind := range t.Inputs {
		if kind == graph.PortTrigger {
			continue
		}
		if v, ok := ec.InputValue(n.ID, i); ok {
			input = v
			break
		}
	}

	ec.setCurrent(n.ID, t)
	outcome, err = t.Execute(ctx, n, input, ec)
	return outcome, err
}

// downstream collects the target nodes of the selected trigger outputs, in
// output-port declaration order then connection insertion order.
func (e *Engine) downstream(snap *graph.Snapshot, t *node.Type, nodeID string, selected int) []string {
	conns := snap.OutputConnections(nodeID)
	var next []string
	for outIdx, kind := range t.Outputs {
		if kind != graph.PortTrigger {
			continue
		}
		if selected != node.AllOutputs && outIdx != selected {
			continue
		}
		for _, c := range conns {
			if c.FromOutput == outIdx {
				next = append(next, c.ToNode)
			}
		}
	}
	return next
}

func (e *Engine) recordFailure(res *PassResult, n *graph.Node, msg string) {
	res.Failures = append(res.Failures, NodeFailure{NodeID: n.ID, TypeID: n.TypeID, Message: msg})
	e.metrics.recordNodeFailure(n.TypeID)
	e.logger.Warn("Node execution failed", "node", n.ID, "type", n.TypeID, "error", msg)
	e.notify(fmt.Sprintf("Node %s failed: %s", n.ID, msg), node.NotifyError)
}
