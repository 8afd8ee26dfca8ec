package graph

import (
	"fmt"
	"sync"
	"time"

	"github.com/tomtomtong/comfyTrade/errors"
)

// PortKind is the kind of value a node port carries. Trigger ports carry
// control flow only, no data payload.
type PortKind string

// Port kinds supported by the engine.
const (
	PortTrigger PortKind = "trigger"
	PortString  PortKind = "string"
	PortNumber  PortKind = "number"
)

// Valid reports whether k is a known port kind.
func (k PortKind) Valid() bool {
	switch k {
	case PortTrigger, PortString, PortNumber:
		return true
	}
	return false
}

// TypeResolver answers port layout questions for a node type id. The node
// registry implements this; the graph uses it to bounds-check connections
// and to flag unresolvable nodes on import.
type TypeResolver interface {
	Ports(typeID string) (inputs, outputs []PortKind, ok bool)
}

// Params holds per-instance node parameters.
type Params map[string]any

// Clone returns a shallow copy of the parameter map. Values are JSON-shaped
// scalars, so a shallow copy is enough to isolate concurrent passes.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the named parameter as a string, or def when absent.
func (p Params) String(name, def string) string {
	if v, ok := p[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Float returns the named parameter as a float64, or def when absent.
// JSON decoding produces float64 for all numbers; int values set in code are
// converted.
func (p Params) Float(name string, def float64) float64 {
	v, ok := p[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// Bool returns the named parameter as a bool, or def when absent.
func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Node is one node instance on the canvas. Position is layout-only.
// OutputData, LastResult, and LastExecutionTime are display copies of the
// most recent pass state; the engine computes against per-pass snapshots and
// writes these back once per pass.
type Node struct {
	ID                string    `json:"id"`
	TypeID            string    `json:"type_id"`
	Position          Position  `json:"position"`
	Params            Params    `json:"params,omitempty"`
	OutputData        any       `json:"output_data,omitempty"`
	LastResult        bool      `json:"last_result,omitempty"`
	LastExecutionTime time.Time `json:"last_execution_time,omitempty"`

	// Unresolved marks a node whose type id was not registered at import
	// time. The engine skips unresolved nodes instead of failing the run.
	Unresolved bool `json:"unresolved,omitempty"`
}

// Clone returns a copy of the node with isolated params.
func (n *Node) Clone() *Node {
	c := *n
	c.Params = n.Params.Clone()
	return &c
}

// Position is the canvas location of a node. Not behavioral.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connection is a directed edge from one node's output port to another
// node's input port. Multiple connections may share a source output
// (fan-out); an input port accepts at most one incoming connection.
type Connection struct {
	FromNode   string `json:"from_node"`
	FromOutput int    `json:"from_output"`
	ToNode     string `json:"to_node"`
	ToInput    int    `json:"to_input"`
}

// Graph owns the node instances and connections of one strategy canvas.
// All methods are safe for concurrent use.
type Graph struct {
	mu          sync.RWMutex
	nodes       map[string]*Node
	order       []string // node ids in insertion order, for stable export
	connections []Connection
	resolver    TypeResolver
}

// New creates an empty graph. The resolver is used to validate connection
// port indexes and to flag unresolvable node types on import; it may be nil,
// in which case those checks are skipped.
func New(resolver TypeResolver) *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		resolver: resolver,
	}
}

// AddNode adds a node instance to the graph.
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return errors.WrapInvalid(fmt.Errorf("node cannot be nil"), "graph", "AddNode", "validation")
	}
	if n.ID == "" {
		return errors.WrapInvalid(fmt.Errorf("node ID cannot be empty"), "graph", "AddNode", "validation")
	}
	if n.TypeID == "" {
		return errors.WrapInvalid(fmt.Errorf("node %s has empty type", n.ID), "graph", "AddNode", "validation")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID]; exists {
		return errors.WrapInvalid(fmt.Errorf("duplicate node ID: %s", n.ID), "graph", "AddNode", "uniqueness check")
	}

	if g.resolver != nil {
		if _, _, ok := g.resolver.Ports(n.TypeID); !ok {
			n.Unresolved = true
		}
	}

	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return nil
}

// RemoveNode deletes a node and every connection touching it.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; !exists {
		return errors.WrapInvalid(errors.ErrNodeNotFound, "graph", "RemoveNode", fmt.Sprintf("remove node %s", id))
	}

	delete(g.nodes, id)
	for i, nid := range g.order {
		if nid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.FromNode != id && c.ToNode != id {
			kept = append(kept, c)
		}
	}
	g.connections = kept
	return nil
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// SetParams replaces the parameter map of a node.
func (g *Graph) SetParams(id string, params Params) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return errors.WrapInvalid(errors.ErrNodeNotFound, "graph", "SetParams", fmt.Sprintf("update node %s", id))
	}
	n.Params = params.Clone()
	return nil
}

// Connect adds a connection after validating both endpoints. Port indexes
// are bounds-checked against the resolver's port layout when the node types
// resolve. An input port that already has an incoming connection rejects a
// second one: fan-in is a configuration error, not an aggregation request.
func (g *Graph) Connect(c Connection) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.nodes[c.FromNode]
	if !ok {
		return errors.WrapInvalid(errors.ErrNodeNotFound, "graph", "Connect",
			fmt.Sprintf("source node %s", c.FromNode))
	}
	to, ok := g.nodes[c.ToNode]
	if !ok {
		return errors.WrapInvalid(errors.ErrNodeNotFound, "graph", "Connect",
			fmt.Sprintf("target node %s", c.ToNode))
	}
	if c.FromOutput < 0 || c.ToInput < 0 {
		return errors.WrapInvalid(errors.ErrPortOutOfRange, "graph", "Connect", "negative port index")
	}

	if g.resolver != nil {
		if _, outputs, ok := g.resolver.Ports(from.TypeID); ok && c.FromOutput >= len(outputs) {
			return errors.WrapInvalid(errors.ErrPortOutOfRange, "graph", "Connect",
				fmt.Sprintf("output %d of node %s (type %s has %d outputs)",
					c.FromOutput, c.FromNode, from.TypeID, len(outputs)))
		}
		if inputs, _, ok := g.resolver.Ports(to.TypeID); ok && c.ToInput >= len(inputs) {
			return errors.WrapInvalid(errors.ErrPortOutOfRange, "graph", "Connect",
				fmt.Sprintf("input %d of node %s (type %s has %d inputs)",
					c.ToInput, c.ToNode, to.TypeID, len(inputs)))
		}
	}

	for _, existing := range g.connections {
		if existing == c {
			return nil // already connected, no duplicate edges
		}
		if existing.ToNode == c.ToNode && existing.ToInput == c.ToInput {
			return errors.WrapInvalid(errors.ErrInputOccupied, "graph", "Connect",
				fmt.Sprintf("input %d of node %s", c.ToInput, c.ToNode))
		}
	}

	g.connections = append(g.connections, c)
	return nil
}

// Disconnect removes a connection. Removing a connection that does not exist
// is a no-op.
func (g *Graph) Disconnect(c Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, existing := range g.connections {
		if existing == c {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			return
		}
	}
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// Connections returns a copy of all connections in insertion order.
func (g *Graph) Connections() []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Connection, len(g.connections))
	copy(out, g.connections)
	return out
}

// NodeState carries the per-node results of one engine pass.
type NodeState struct {
	Output     any
	Result     bool
	ExecutedAt time.Time
}

// ApplyResults writes pass results back onto the display copies of the
// affected nodes. Last writer wins across concurrently finishing flows;
// execution correctness is unaffected because passes read their own
// snapshots, never these fields.
func (g *Graph) ApplyResults(states map[string]NodeState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, st := range states {
		n, ok := g.nodes[id]
		if !ok {
			continue // node removed mid-pass
		}
		n.OutputData = st.Output
		n.LastResult = st.Result
		n.LastExecutionTime = st.ExecutedAt
	}
}
