package graph

// Snapshot is an immutable copy of the graph taken at the start of an engine
// pass. Every concurrently running flow executes against its own snapshot,
// so passes never observe each other's writes (snapshot-per-run isolation).
type Snapshot struct {
	nodes       map[string]*Node
	order       []string
	connections []Connection

	// inputsByNode/outputsByNode preserve connection insertion order, which
	// fixes the deterministic fan-out order of a pass.
	inputsByNode  map[string][]Connection
	outputsByNode map[string][]Connection
}

// Snapshot captures the current nodes and connections.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := &Snapshot{
		nodes:         make(map[string]*Node, len(g.nodes)),
		order:         make([]string, len(g.order)),
		connections:   make([]Connection, len(g.connections)),
		inputsByNode:  make(map[string][]Connection),
		outputsByNode: make(map[string][]Connection),
	}
	copy(s.order, g.order)
	copy(s.connections, g.connections)

	for id, n := range g.nodes {
		s.nodes[id] = n.Clone()
	}
	for _, c := range s.connections {
		s.inputsByNode[c.ToNode] = append(s.inputsByNode[c.ToNode], c)
		s.outputsByNode[c.FromNode] = append(s.outputsByNode[c.FromNode], c)
	}
	return s
}

// Node returns the snapshotted node with the given id.
func (s *Snapshot) Node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all snapshotted nodes in insertion order.
func (s *Snapshot) Nodes() []*Node {
	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// Connections returns all snapshotted connections in insertion order.
func (s *Snapshot) Connections() []Connection {
	return s.connections
}

// InputConnections returns the connections feeding a node, in insertion order.
func (s *Snapshot) InputConnections(nodeID string) []Connection {
	return s.inputsByNode[nodeID]
}

// OutputConnections returns the connections leaving a node, in insertion order.
func (s *Snapshot) OutputConnections(nodeID string) []Connection {
	return s.outputsByNode[nodeID]
}

// InputConnection returns the single connection into an input port, if any.
func (s *Snapshot) InputConnection(nodeID string, input int) (Connection, bool) {
	for _, c := range s.inputsByNode[nodeID] {
		if c.ToInput == input {
			return c, true
		}
	}
	return Connection{}, false
}
