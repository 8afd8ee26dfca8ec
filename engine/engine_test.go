package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/node"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passRecorder builds a registry of minimal node types that append their
// node id to an execution trace, so tests can assert order and counts.
type passRecorder struct {
	registry *node.Registry
	trace    []string
}

func newPassRecorder(t *testing.T) *passRecorder {
	t.Helper()
	rec := &passRecorder{registry: node.NewRegistry()}

	register := func(typ *node.Type) {
		t.Helper()
		require.NoError(t, rec.registry.Register(typ))
	}

	register(&node.Type{
		ID:      "trigger",
		Title:   "Trigger",
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			return node.ContinueAll(), nil
		},
	})
	register(&node.Type{
		ID:      "pass",
		Title:   "Pass Through",
		Inputs:  []graph.PortKind{graph.PortTrigger},
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			return node.ContinueAll(), nil
		},
	})
	register(&node.Type{
		ID:      "emit",
		Title:   "Emit Value",
		Inputs:  []graph.PortKind{graph.PortTrigger},
		Outputs: []graph.PortKind{graph.PortTrigger, graph.PortNumber},
		Execute: func(_ context.Context, n *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			n.OutputData = n.Params.Float("value", 0)
			return node.ContinueAll(), nil
		},
	})
	register(&node.Type{
		ID:      "consume",
		Title:   "Consume Value",
		Inputs:  []graph.PortKind{graph.PortTrigger, graph.PortNumber},
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, input any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			n.OutputData = input
			return node.ContinueAll(), nil
		},
	})
	register(&node.Type{
		ID:      "fail",
		Title:   "Always Fail",
		Inputs:  []graph.PortKind{graph.PortTrigger},
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			return node.Halt(), fmt.Errorf("boom")
		},
	})
	register(&node.Type{
		ID:      "panic",
		Title:   "Always Panic",
		Inputs:  []graph.PortKind{graph.PortTrigger},
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			panic("node exploded")
		},
	})
	register(&node.Type{
		ID:      "halt",
		Title:   "Halt Branch",
		Inputs:  []graph.PortKind{graph.PortTrigger},
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			return node.Halt(), nil
		},
	})
	register(&node.Type{
		ID:      "join",
		Title:   "Join",
		Inputs:  []graph.PortKind{graph.PortTrigger, graph.PortTrigger},
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			return node.ContinueAll(), nil
		},
	})
	register(&node.Type{
		ID:      "router",
		Title:   "Route By Param",
		Inputs:  []graph.PortKind{graph.PortTrigger},
		Outputs: []graph.PortKind{graph.PortTrigger, graph.PortTrigger},
		Execute: func(_ context.Context, n *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			rec.trace = append(rec.trace, n.ID)
			return node.Route(int(n.Params.Float("route", 0))), nil
		},
	})
	return rec
}

func (r *passRecorder) engine(notify node.Notifier) *Engine {
	return NewEngine(r.registry, nil, notify, nil, testLogger(), nil)
}

func (r *passRecorder) graph() *graph.Graph {
	return graph.New(r.registry)
}

func addNodes(t *testing.T, g *graph.Graph, nodes ...*graph.Node) {
	t.Helper()
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
}

func connect(t *testing.T, g *graph.Graph, conns ...graph.Connection) {
	t.Helper()
	for _, c := range conns {
		require.NoError(t, g.Connect(c))
	}
}

func TestRunPassLinearChain(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "a", TypeID: "pass"},
		&graph.Node{ID: "b", TypeID: "pass"},
	)
	connect(t, g,
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "a", ToInput: 0},
		graph.Connection{FromNode: "a", FromOutput: 0, ToNode: "b", ToInput: 0},
	)

	res := rec.engine(nil).RunPass(context.Background(), g, "t")

	require.True(t, res.Success)
	assert.False(t, res.Skipped)
	assert.Equal(t, 3, res.NodesExecuted)
	assert.Equal(t, []string{"t", "a", "b"}, rec.trace)
	assert.Empty(t, res.Failures)
}

func TestRunPassCycleExecutesEachNodeOnce(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "j", TypeID: "join"},
		&graph.Node{ID: "b", TypeID: "pass"},
	)
	// t -> j -> b -> j closes a cycle through the join's second input; the
	// pass must terminate with each node executed at most once.
	connect(t, g,
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "j", ToInput: 0},
		graph.Connection{FromNode: "j", FromOutput: 0, ToNode: "b", ToInput: 0},
		graph.Connection{FromNode: "b", FromOutput: 0, ToNode: "j", ToInput: 1},
	)

	res := rec.engine(nil).RunPass(context.Background(), g, "t")
	require.True(t, res.Success)
	assert.Equal(t, []string{"t", "j", "b"}, rec.trace)
	assert.Equal(t, 3, res.NodesExecuted)

	seen := make(map[string]int)
	for _, id := range res.Executed {
		seen[id]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "node %s executed more than once", id)
	}
}

func TestRunPassFanOutOrderIsDeterministic(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "first", TypeID: "pass"},
		&graph.Node{ID: "second", TypeID: "pass"},
		&graph.Node{ID: "third", TypeID: "pass"},
	)
	connect(t, g,
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "first", ToInput: 0},
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "second", ToInput: 0},
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "third", ToInput: 0},
	)

	for range 3 {
		rec.trace = nil
		res := rec.engine(nil).RunPass(context.Background(), g, "t")
		require.True(t, res.Success)
		assert.Equal(t, []string{"t", "first", "second", "third"}, rec.trace,
			"fan-out follows connection insertion order on every pass")
	}
}

func TestRunPassFailureIsLocalToBranch(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "bad", TypeID: "fail"},
		&graph.Node{ID: "after-bad", TypeID: "pass"},
		&graph.Node{ID: "good", TypeID: "pass"},
	)
	connect(t, g,
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "bad", ToInput: 0},
		graph.Connection{FromNode: "bad", FromOutput: 0, ToNode: "after-bad", ToInput: 0},
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "good", ToInput: 0},
	)

	var notified []string
	notify := func(text string, _ node.NotifyLevel) { notified = append(notified, text) }

	res := rec.engine(notify).RunPass(context.Background(), g, "t")

	assert.True(t, res.Success, "a non-trigger failure does not fail the pass")
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "bad", res.Failures[0].NodeID)
	assert.Contains(t, res.Failures[0].Message, "boom")
	assert.Contains(t, rec.trace, "good", "sibling branch still runs")
	assert.NotContains(t, rec.trace, "after-bad", "failing branch is cut")
	require.Len(t, notified, 1)
	assert.Contains(t, notified[0], "bad")
}

func TestRunPassPanicIsolation(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "boomer", TypeID: "panic"},
		&graph.Node{ID: "downstream", TypeID: "pass"},
		&graph.Node{ID: "sibling", TypeID: "pass"},
	)
	connect(t, g,
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "boomer", ToInput: 0},
		graph.Connection{FromNode: "boomer", FromOutput: 0, ToNode: "downstream", ToInput: 0},
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "sibling", ToInput: 0},
	)

	res := rec.engine(nil).RunPass(context.Background(), g, "t")

	assert.True(t, res.Success)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "boomer", res.Failures[0].NodeID)
	assert.Contains(t, res.Failures[0].Message, "node panicked")
	assert.Contains(t, rec.trace, "sibling")
	assert.NotContains(t, rec.trace, "downstream")
}

func TestRunPassHaltStopsBranchWithoutFailure(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "gate", TypeID: "halt"},
		&graph.Node{ID: "blocked", TypeID: "pass"},
	)
	connect(t, g,
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "gate", ToInput: 0},
		graph.Connection{FromNode: "gate", FromOutput: 0, ToNode: "blocked", ToInput: 0},
	)

	res := rec.engine(nil).RunPass(context.Background(), g, "t")

	assert.True(t, res.Success)
	assert.Empty(t, res.Failures)
	assert.NotContains(t, rec.trace, "blocked")
}

func TestRunPassRouteSelectsSingleOutput(t *testing.T) {
	tests := []struct {
		name    string
		route   float64
		wantRun string
		skipRun string
	}{
		{name: "route first output", route: 0, wantRun: "yes", skipRun: "no"},
		{name: "route second output", route: 1, wantRun: "no", skipRun: "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newPassRecorder(t)
			g := rec.graph()
			addNodes(t, g,
				&graph.Node{ID: "t", TypeID: "trigger"},
				&graph.Node{ID: "r", TypeID: "router", Params: graph.Params{"route": tt.route}},
				&graph.Node{ID: "yes", TypeID: "pass"},
				&graph.Node{ID: "no", TypeID: "pass"},
			)
			connect(t, g,
				graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "r", ToInput: 0},
				graph.Connection{FromNode: "r", FromOutput: 0, ToNode: "yes", ToInput: 0},
				graph.Connection{FromNode: "r", FromOutput: 1, ToNode: "no", ToInput: 0},
			)

			res := rec.engine(nil).RunPass(context.Background(), g, "t")

			require.True(t, res.Success)
			assert.Contains(t, rec.trace, tt.wantRun)
			assert.NotContains(t, rec.trace, tt.skipRun)
		})
	}
}

func TestRunPassDataFlowsThroughInputs(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "src", TypeID: "emit", Params: graph.Params{"value": 42.5}},
		&graph.Node{ID: "dst", TypeID: "consume"},
	)
	connect(t, g,
		graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "src", ToInput: 0},
		graph.Connection{FromNode: "src", FromOutput: 0, ToNode: "dst", ToInput: 0},
		graph.Connection{FromNode: "src", FromOutput: 1, ToNode: "dst", ToInput: 1},
	)

	res := rec.engine(nil).RunPass(context.Background(), g, "t")
	require.True(t, res.Success)

	// Write-back: the consumer's display output holds the produced value.
	dst, ok := g.Node("dst")
	require.True(t, ok)
	assert.Equal(t, 42.5, dst.OutputData)
	assert.True(t, dst.LastResult)
	assert.False(t, dst.LastExecutionTime.IsZero())
}

func TestRunPassDisabledTriggerSkips(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger", Params: graph.Params{"enabled": false}},
		&graph.Node{ID: "a", TypeID: "pass"},
	)
	connect(t, g, graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "a", ToInput: 0})

	res := rec.engine(nil).RunPass(context.Background(), g, "t")

	assert.True(t, res.Skipped)
	assert.True(t, res.Success)
	assert.Zero(t, res.NodesExecuted)
	assert.Empty(t, rec.trace)
}

func TestRunPassMissingTrigger(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()

	res := rec.engine(nil).RunPass(context.Background(), g, "ghost")

	assert.False(t, res.Success)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0].Message, "not found")
}

func TestRunPassNilGraphAndEmptyTrigger(t *testing.T) {
	rec := newPassRecorder(t)
	eng := rec.engine(nil)

	res := eng.RunPass(context.Background(), nil, "t")
	assert.False(t, res.Success)

	res = eng.RunPass(context.Background(), rec.graph(), "")
	assert.False(t, res.Success)
}

func TestRunPassUnresolvedNodeSkipped(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "plug", TypeID: "plugin-unloaded"},
	)
	connect(t, g, graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "plug", ToInput: 0})

	res := rec.engine(nil).RunPass(context.Background(), g, "t")

	assert.True(t, res.Success, "an unresolved non-trigger node does not fail the pass")
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "plug", res.Failures[0].NodeID)
	assert.Contains(t, res.Failures[0].Message, "not found")
	assert.Equal(t, []string{"t"}, rec.trace)
}

func TestRunPassUnresolvedTriggerFails(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g, &graph.Node{ID: "t", TypeID: "plugin-unloaded"})

	res := rec.engine(nil).RunPass(context.Background(), g, "t")

	assert.False(t, res.Success)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "t", res.Failures[0].NodeID)
}

func TestRunPassSnapshotIsolationFromConcurrentEdits(t *testing.T) {
	rec := newPassRecorder(t)
	g := rec.graph()
	addNodes(t, g,
		&graph.Node{ID: "t", TypeID: "trigger"},
		&graph.Node{ID: "a", TypeID: "emit", Params: graph.Params{"value": 1.0}},
	)
	connect(t, g, graph.Connection{FromNode: "t", FromOutput: 0, ToNode: "a", ToInput: 0})

	// First pass populates display state; a param edit between passes is
	// picked up by the next snapshot.
	eng := rec.engine(nil)
	res := eng.RunPass(context.Background(), g, "t")
	require.True(t, res.Success)

	require.NoError(t, g.SetParams("a", graph.Params{"value": 2.0}))
	res = eng.RunPass(context.Background(), g, "t")
	require.True(t, res.Success)

	a, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, 2.0, a.OutputData)
}
