package engine

import (
	"context"

	"github.com/tomtomtong/comfyTrade/bridge"
	"github.com/tomtomtong/comfyTrade/graph"
	"github.com/tomtomtong/comfyTrade/node"
)

// execContext implements node.ExecContext for one pass. The pass traversal
// is sequential, so a single context with a mutable current-node field is
// enough; values flow between nodes through the pass-local snapshot clones,
// never through the live graph.
type execContext struct {
	engine *Engine
	snap   *graph.Snapshot
	state  map[string]*runState

	currentNode string
	currentType *node.Type
}

func newExecContext(e *Engine, snap *graph.Snapshot, state map[string]*runState) *execContext {
	return &execContext{engine: e, snap: snap, state: state}
}

// setCurrent points the context at the node about to execute, which scopes
// Store() to the owning plugin.
func (ec *execContext) setCurrent(nodeID string, t *node.Type) {
	ec.currentNode = nodeID
	ec.currentType = t
}

// Terminal implements node.ExecContext.
func (ec *execContext) Terminal() bridge.Terminal {
	return ec.engine.terminal
}

// Notify implements node.ExecContext.
func (ec *execContext) Notify(text string, level node.NotifyLevel) {
	ec.engine.notify(text, level)
}

// Nodes implements node.ExecContext.
func (ec *execContext) Nodes() []*graph.Node {
	return ec.snap.Nodes()
}

// Connections implements node.ExecContext.
func (ec *execContext) Connections() []graph.Connection {
	return ec.snap.Connections()
}

// FindNode implements node.ExecContext.
func (ec *execContext) FindNode(id string) (*graph.Node, bool) {
	return ec.snap.Node(id)
}

// InputConnections implements node.ExecContext.
func (ec *execContext) InputConnections(nodeID string) []graph.Connection {
	return ec.snap.InputConnections(nodeID)
}

// OutputConnections implements node.ExecContext.
func (ec *execContext) OutputConnections(nodeID string) []graph.Connection {
	return ec.snap.OutputConnections(nodeID)
}

// InputValue implements node.ExecContext. Trigger ports carry no payload,
// so they always resolve (nil, false).
func (ec *execContext) InputValue(nodeID string, input int) (any, bool) {
	n, ok := ec.snap.Node(nodeID)
	if !ok {
		return nil, false
	}
	if inputs, _, ok := ec.engine.registry.Ports(n.TypeID); ok {
		if input >= len(inputs) || inputs[input] == graph.PortTrigger {
			return nil, false
		}
	}
	c, ok := ec.snap.InputConnection(nodeID, input)
	if !ok {
		return nil, false
	}
	src, ok := ec.snap.Node(c.FromNode)
	if !ok {
		return nil, false
	}
	return src.OutputData, true
}

// ConnectedInputs implements node.ExecContext.
func (ec *execContext) ConnectedInputs(nodeID string) []any {
	n, ok := ec.snap.Node(nodeID)
	if !ok {
		return nil
	}
	inputs, _, ok := ec.engine.registry.Ports(n.TypeID)
	if !ok {
		return nil
	}

	var values []any
	for i, kind := range inputs {
		if kind == graph.PortTrigger {
			continue
		}
		if v, connected := ec.InputValue(nodeID, i); connected {
			values = append(values, v)
		}
	}
	return values
}

// Store implements node.ExecContext, scoped to the executing node's plugin.
func (ec *execContext) Store() node.PluginStore {
	pluginID := "builtin"
	if ec.currentType != nil && ec.currentType.PluginID != "" {
		pluginID = ec.currentType.PluginID
	}
	if ec.engine.stores == nil {
		return noopStore{}
	}
	return ec.engine.stores(pluginID)
}

// noopStore satisfies node.PluginStore when no persistence is wired.
type noopStore struct{}

func (noopStore) Get(context.Context, string) ([]byte, error) { return nil, nil }
func (noopStore) Set(context.Context, string, []byte) error   { return nil }
