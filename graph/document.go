package graph

import (
	"encoding/json"
	"fmt"

	"github.com/tomtomtong/comfyTrade/errors"
)

// Document is the serializable form of a graph: nodes, connections, and
// params, JSON-shaped for save/load.
type Document struct {
	Nodes       []DocumentNode `json:"nodes"`
	Connections []Connection   `json:"connections"`
}

// DocumentNode is the persisted form of a node instance. Runtime state
// (output data, last result) is not persisted.
type DocumentNode struct {
	ID       string   `json:"id"`
	TypeID   string   `json:"type_id"`
	Position Position `json:"position"`
	Params   Params   `json:"params,omitempty"`
}

// Validate checks the structural integrity of a document before import.
func (d *Document) Validate() error {
	ids := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			return errors.WrapInvalid(fmt.Errorf("node at index %d has empty ID", i),
				"graph", "Validate", "node validation")
		}
		if n.TypeID == "" {
			return errors.WrapInvalid(fmt.Errorf("node %s has empty type", n.ID),
				"graph", "Validate", "node validation")
		}
		if ids[n.ID] {
			return errors.WrapInvalid(fmt.Errorf("duplicate node ID: %s", n.ID),
				"graph", "Validate", "node validation")
		}
		ids[n.ID] = true
	}

	occupied := make(map[string]bool)
	for i, c := range d.Connections {
		if !ids[c.FromNode] {
			return errors.WrapInvalid(fmt.Errorf("connection %d references unknown source node %s", i, c.FromNode),
				"graph", "Validate", "connection validation")
		}
		if !ids[c.ToNode] {
			return errors.WrapInvalid(fmt.Errorf("connection %d references unknown target node %s", i, c.ToNode),
				"graph", "Validate", "connection validation")
		}
		if c.FromOutput < 0 || c.ToInput < 0 {
			return errors.WrapInvalid(errors.ErrPortOutOfRange, "graph", "Validate",
				fmt.Sprintf("connection %d", i))
		}
		key := fmt.Sprintf("%s/%d", c.ToNode, c.ToInput)
		if occupied[key] {
			return errors.WrapInvalid(errors.ErrInputOccupied, "graph", "Validate",
				fmt.Sprintf("input %d of node %s", c.ToInput, c.ToNode))
		}
		occupied[key] = true
	}

	return nil
}

// Export captures the graph as a document.
func (g *Graph) Export() *Document {
	g.mu.RLock()
	defer g.mu.RUnlock()

	doc := &Document{
		Nodes:       make([]DocumentNode, 0, len(g.order)),
		Connections: make([]Connection, len(g.connections)),
	}
	for _, id := range g.order {
		n := g.nodes[id]
		doc.Nodes = append(doc.Nodes, DocumentNode{
			ID:       n.ID,
			TypeID:   n.TypeID,
			Position: n.Position,
			Params:   n.Params.Clone(),
		})
	}
	copy(doc.Connections, g.connections)
	return doc
}

// ExportJSON serializes the graph document.
func (g *Graph) ExportJSON() ([]byte, error) {
	data, err := json.Marshal(g.Export())
	if err != nil {
		return nil, errors.WrapFatal(err, "graph", "ExportJSON", "marshal document")
	}
	return data, nil
}

// Import replaces the current graph wholesale with the document contents.
// Nodes whose type id does not resolve are imported anyway and flagged
// Unresolved so the engine skips them at run time: partial recoverability is
// preferred over rejecting the whole import.
func (g *Graph) Import(doc *Document) error {
	if doc == nil {
		return errors.WrapInvalid(fmt.Errorf("document cannot be nil"), "graph", "Import", "validation")
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*Node, len(doc.Nodes))
	g.order = g.order[:0]
	g.connections = make([]Connection, len(doc.Connections))
	copy(g.connections, doc.Connections)

	for _, dn := range doc.Nodes {
		n := &Node{
			ID:       dn.ID,
			TypeID:   dn.TypeID,
			Position: dn.Position,
			Params:   dn.Params.Clone(),
		}
		if g.resolver != nil {
			if _, _, ok := g.resolver.Ports(n.TypeID); !ok {
				n.Unresolved = true
			}
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	return nil
}

// ImportJSON deserializes and imports a graph document.
func (g *Graph) ImportJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.WrapInvalid(err, "graph", "ImportJSON", "unmarshal document")
	}
	return g.Import(&doc)
}

// Unresolved returns the ids of nodes whose type could not be resolved.
func (g *Graph) Unresolved() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []string
	for _, id := range g.order {
		if g.nodes[id].Unresolved {
			out = append(out, id)
		}
	}
	return out
}
