package node

import (
	"context"

	"github.com/tomtomtong/comfyTrade/bridge"
	"github.com/tomtomtong/comfyTrade/graph"
)

// AllOutputs selects every trigger output of a node for propagation. It is
// the default when a node does not route explicitly.
const AllOutputs = -1

// Outcome is what a node's Execute returns to the engine. Continue=false
// halts propagation from this node (conditional gating). Output selects a
// single trigger output to follow; AllOutputs follows every trigger output.
type Outcome struct {
	Continue bool
	Output   int
}

// ContinueAll propagates along every trigger output.
func ContinueAll() Outcome {
	return Outcome{Continue: true, Output: AllOutputs}
}

// Halt stops propagation from this node.
func Halt() Outcome {
	return Outcome{Continue: false, Output: AllOutputs}
}

// Route propagates along exactly one trigger output, selected by index.
// Conditional routers use this for their true/false paths.
func Route(output int) Outcome {
	return Outcome{Continue: true, Output: output}
}

// NotifyLevel classifies user-facing notifications.
type NotifyLevel string

// Notification levels.
const (
	NotifyInfo  NotifyLevel = "info"
	NotifyWarn  NotifyLevel = "warn"
	NotifyError NotifyLevel = "error"
)

// Notifier delivers a one-line user-visible message. Implementations must
// never block on user acknowledgment.
type Notifier func(text string, level NotifyLevel)

// PluginStore is a small persistent key-value store scoped to one plugin id.
type PluginStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ExecContext is the capability surface handed to every Execute call. It
// exposes the trading terminal, user notification, read-only access to the
// pass's graph snapshot, and input/output lookup helpers so multi-input
// node types (logic gates, custom plugin aggregators) can do their own
// fan-in.
type ExecContext interface {
	// Terminal is the external trading bridge.
	Terminal() bridge.Terminal

	// Notify surfaces a one-line message to the user.
	Notify(text string, level NotifyLevel)

	// Nodes and Connections expose the full pass snapshot, read-only.
	Nodes() []*graph.Node
	Connections() []graph.Connection

	// FindNode looks a node up by id within the pass snapshot.
	FindNode(id string) (*graph.Node, bool)

	// InputConnections and OutputConnections return the edges touching a
	// node in insertion order.
	InputConnections(nodeID string) []graph.Connection
	OutputConnections(nodeID string) []graph.Connection

	// InputValue resolves the value feeding one input port: the pass-local
	// output of whatever node is connected there. ok is false when the port
	// is unconnected or carries a trigger (triggers have no payload).
	InputValue(nodeID string, input int) (value any, ok bool)

	// ConnectedInputs resolves every non-trigger input of a node, in port
	// order. Unconnected ports are omitted.
	ConnectedInputs(nodeID string) []any

	// Store returns the persistent key-value store scoped to the plugin
	// that registered the executing node's type.
	Store() PluginStore
}

// ExecuteFunc is the execution contract of a node type. It receives the
// pass-snapshotted node instance, the resolved value of the node's primary
// data input (nil when unconnected), and the capability context. The
// returned Outcome steers propagation; a returned error is recorded against
// the node and halts that branch only.
type ExecuteFunc func(ctx context.Context, n *graph.Node, input any, ec ExecContext) (Outcome, error)

// ValidateFunc optionally sanity-checks a node instance's params at
// configuration time.
type ValidateFunc func(n *graph.Node) error

// Type is an immutable node type. Built-in types are registered at startup;
// plugin types are loaded (and unloaded) at runtime.
type Type struct {
	ID            string
	Title         string
	Category      string
	Inputs        []graph.PortKind
	Outputs       []graph.PortKind
	DefaultParams graph.Params
	Execute       ExecuteFunc
	Validate      ValidateFunc

	// PluginID is the owning plugin for runtime-loaded types; empty for
	// built-ins. It namespaces the per-plugin store.
	PluginID string
}

// NewInstance creates a node instance of this type with default params.
func (t *Type) NewInstance(id string) *graph.Node {
	return &graph.Node{
		ID:     id,
		TypeID: t.ID,
		Params: t.DefaultParams.Clone(),
	}
}
