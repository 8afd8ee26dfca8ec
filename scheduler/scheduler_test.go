package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtomtong/comfyTrade/engine"
	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/node"
)

// newTestScheduler wires a scheduler over a one-trigger graph whose passes
// increment a counter, so tests can observe tick activity.
func newTestScheduler(t *testing.T) (*Scheduler, *atomic.Int64) {
	t.Helper()

	var passes atomic.Int64
	registry := node.NewRegistry()
	require.NoError(t, registry.Register(&node.Type{
		ID:      "count-trigger",
		Title:   "Counting Trigger",
		Outputs: []graph.PortKind{graph.PortTrigger},
		Execute: func(_ context.Context, _ *graph.Node, _ any, _ node.ExecContext) (node.Outcome, error) {
			passes.Add(1)
			return node.ContinueAll(), nil
		},
	}))

	g := graph.New(registry)
	require.NoError(t, g.AddNode(&graph.Node{ID: "t1", TypeID: "count-trigger"}))
	require.NoError(t, g.AddNode(&graph.Node{ID: "t2", TypeID: "count-trigger"}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.NewEngine(registry, nil, nil, nil, logger, nil)
	s := New(eng, g, logger, nil)
	t.Cleanup(s.StopAll)
	return s, &passes
}

func TestStartFlowValidation(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.StartFlow("ghost", RunOnce, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNodeNotFound)

	_, err = s.StartFlow("t1", RunPeriodic, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = s.StartFlow("t1", Mode("cron"), time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestRunOnceFlowExecutesSinglePass(t *testing.T) {
	s, passes := newTestScheduler(t)

	flow, err := s.StartFlow("t1", RunOnce, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, flow.ID)
	assert.Equal(t, RunOnce, flow.Mode)
	assert.Zero(t, flow.Interval, "once mode ignores the interval")

	require.Eventually(t, func() bool {
		got, err := s.Flow(flow.ID)
		return err == nil && got.Status == StatusStopped
	}, time.Second, 5*time.Millisecond)

	got, err := s.Flow(flow.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ExecutionCount)
	require.NotNil(t, got.LastPass)
	assert.True(t, got.LastPass.Success)
	assert.Equal(t, int64(1), passes.Load())
}

func TestPeriodicFlowTicksUntilStopped(t *testing.T) {
	s, passes := newTestScheduler(t)

	flow, err := s.StartFlow("t1", RunPeriodic, 10*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return passes.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.StopFlow(flow.ID))

	got, err := s.Flow(flow.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, got.Status)
	assert.GreaterOrEqual(t, got.ExecutionCount, int64(3))

	// No ticks after stop.
	settled := passes.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, passes.Load())
}

func TestStartFlowReplacesRunningFlowOnSameTrigger(t *testing.T) {
	s, _ := newTestScheduler(t)

	first, err := s.StartFlow("t1", RunPeriodic, 10*time.Millisecond)
	require.NoError(t, err)

	second, err := s.StartFlow("t1", RunPeriodic, 10*time.Millisecond)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	gotFirst, err := s.Flow(first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, gotFirst.Status, "prior flow on the trigger is stopped")

	gotSecond, err := s.Flow(second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, gotSecond.Status)

	// Flows on distinct triggers run side by side.
	other, err := s.StartFlow("t2", RunPeriodic, 10*time.Millisecond)
	require.NoError(t, err)
	gotSecond, err = s.Flow(second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, gotSecond.Status)
	gotOther, err := s.Flow(other.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, gotOther.Status)
}

func TestStopFlow(t *testing.T) {
	s, _ := newTestScheduler(t)

	err := s.StopFlow("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFlowNotFound)

	flow, err := s.StartFlow("t1", RunPeriodic, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, s.StopFlow(flow.ID))
	// Stopping a stopped flow is a no-op.
	require.NoError(t, s.StopFlow(flow.ID))

	// The trigger slot is free again.
	_, err = s.StartFlow("t1", RunOnce, 0)
	require.NoError(t, err)
}

func TestStopAll(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.StartFlow("t1", RunPeriodic, 10*time.Millisecond)
	require.NoError(t, err)
	_, err = s.StartFlow("t2", RunPeriodic, 10*time.Millisecond)
	require.NoError(t, err)

	s.StopAll()

	for _, f := range s.Flows() {
		assert.Equal(t, StatusStopped, f.Status)
	}

	_, err = s.StartFlow("t1", RunOnce, 0)
	require.Error(t, err, "scheduler rejects new flows after shutdown")
}

func TestFlowsOrderedByStartTime(t *testing.T) {
	s, _ := newTestScheduler(t)

	first, err := s.StartFlow("t1", RunPeriodic, time.Minute)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := s.StartFlow("t2", RunPeriodic, time.Minute)
	require.NoError(t, err)

	flows := s.Flows()
	require.Len(t, flows, 2)
	assert.Equal(t, first.ID, flows[0].ID)
	assert.Equal(t, second.ID, flows[1].ID)
}
