package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtomtong/comfyTrade/errors"
)

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: Document{
				Nodes: []DocumentNode{
					{ID: "t1", TypeID: "trigger"},
					{ID: "q1", TypeID: "quote"},
				},
				Connections: []Connection{
					{FromNode: "t1", FromOutput: 0, ToNode: "q1", ToInput: 0},
				},
			},
		},
		{
			name: "empty node id",
			doc: Document{
				Nodes: []DocumentNode{{TypeID: "trigger"}},
			},
			wantErr: errors.ErrInvalidConfig,
		},
		{
			name: "empty node type",
			doc: Document{
				Nodes: []DocumentNode{{ID: "t1"}},
			},
			wantErr: errors.ErrInvalidConfig,
		},
		{
			name: "duplicate node id",
			doc: Document{
				Nodes: []DocumentNode{
					{ID: "t1", TypeID: "trigger"},
					{ID: "t1", TypeID: "quote"},
				},
			},
			wantErr: errors.ErrInvalidConfig,
		},
		{
			name: "connection to unknown source",
			doc: Document{
				Nodes: []DocumentNode{{ID: "q1", TypeID: "quote"}},
				Connections: []Connection{
					{FromNode: "ghost", ToNode: "q1"},
				},
			},
			wantErr: errors.ErrInvalidConfig,
		},
		{
			name: "connection to unknown target",
			doc: Document{
				Nodes: []DocumentNode{{ID: "t1", TypeID: "trigger"}},
				Connections: []Connection{
					{FromNode: "t1", ToNode: "ghost"},
				},
			},
			wantErr: errors.ErrInvalidConfig,
		},
		{
			name: "negative port index",
			doc: Document{
				Nodes: []DocumentNode{
					{ID: "t1", TypeID: "trigger"},
					{ID: "q1", TypeID: "quote"},
				},
				Connections: []Connection{
					{FromNode: "t1", FromOutput: -1, ToNode: "q1"},
				},
			},
			wantErr: errors.ErrPortOutOfRange,
		},
		{
			name: "fan-in on one input",
			doc: Document{
				Nodes: []DocumentNode{
					{ID: "a", TypeID: "quote"},
					{ID: "b", TypeID: "quote"},
					{ID: "c", TypeID: "condition"},
				},
				Connections: []Connection{
					{FromNode: "a", FromOutput: 1, ToNode: "c", ToInput: 1},
					{FromNode: "b", FromOutput: 1, ToNode: "c", ToInput: 1},
				},
			},
			wantErr: errors.ErrInputOccupied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != errors.ErrInvalidConfig {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	g := New(newStubResolver())
	require.NoError(t, g.AddNode(&Node{
		ID:       "t1",
		TypeID:   "trigger",
		Position: Position{X: 10, Y: 20},
		Params:   Params{"enabled": true},
	}))
	require.NoError(t, g.AddNode(&Node{
		ID:     "q1",
		TypeID: "quote",
		Params: Params{"symbol": "EURUSD"},
	}))
	require.NoError(t, g.Connect(Connection{FromNode: "t1", FromOutput: 0, ToNode: "q1", ToInput: 0}))

	data, err := g.ExportJSON()
	require.NoError(t, err)

	restored := New(newStubResolver())
	require.NoError(t, restored.ImportJSON(data))

	nodes := restored.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "t1", nodes[0].ID)
	assert.Equal(t, Position{X: 10, Y: 20}, nodes[0].Position)
	assert.Equal(t, "EURUSD", nodes[1].Params.String("symbol", ""))
	assert.Equal(t,
		[]Connection{{FromNode: "t1", FromOutput: 0, ToNode: "q1", ToInput: 0}},
		restored.Connections())
	assert.Empty(t, restored.Unresolved())
}

func TestExportOmitsRuntimeState(t *testing.T) {
	g := New(newStubResolver())
	require.NoError(t, g.AddNode(&Node{ID: "q1", TypeID: "quote"}))
	g.ApplyResults(map[string]NodeState{"q1": {Output: 1.1, Result: true}})

	doc := g.Export()
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "q1", doc.Nodes[0].ID)

	restored := New(newStubResolver())
	require.NoError(t, restored.Import(doc))
	got, ok := restored.Node("q1")
	require.True(t, ok)
	assert.Nil(t, got.OutputData)
	assert.False(t, got.LastResult)
}

func TestImportReplacesExistingGraph(t *testing.T) {
	g := New(newStubResolver())
	require.NoError(t, g.AddNode(&Node{ID: "old", TypeID: "trigger"}))

	doc := &Document{Nodes: []DocumentNode{{ID: "new", TypeID: "quote"}}}
	require.NoError(t, g.Import(doc))

	_, ok := g.Node("old")
	assert.False(t, ok)
	_, ok = g.Node("new")
	assert.True(t, ok)
}

func TestImportFlagsUnresolvedTypes(t *testing.T) {
	g := New(newStubResolver())
	doc := &Document{Nodes: []DocumentNode{
		{ID: "known", TypeID: "trigger"},
		{ID: "mystery", TypeID: "plugin-gone"},
	}}
	require.NoError(t, g.Import(doc))

	assert.Equal(t, []string{"mystery"}, g.Unresolved())
	known, ok := g.Node("known")
	require.True(t, ok)
	assert.False(t, known.Unresolved)
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	g := New(newStubResolver())
	require.NoError(t, g.AddNode(&Node{ID: "keep", TypeID: "trigger"}))

	err := g.Import(&Document{Nodes: []DocumentNode{{ID: ""}}})
	require.Error(t, err)

	// Rejected import leaves the graph untouched.
	_, ok := g.Node("keep")
	assert.True(t, ok)

	assert.Error(t, g.Import(nil))
	assert.Error(t, g.ImportJSON([]byte("{not json")))
}

func TestSnapshotIsolation(t *testing.T) {
	g := New(newStubResolver())
	require.NoError(t, g.AddNode(&Node{ID: "t1", TypeID: "trigger"}))
	require.NoError(t, g.AddNode(&Node{ID: "q1", TypeID: "quote"}))
	require.NoError(t, g.Connect(Connection{FromNode: "t1", FromOutput: 0, ToNode: "q1", ToInput: 0}))

	snap := g.Snapshot()

	// Mutations after the snapshot are invisible to it.
	require.NoError(t, g.RemoveNode("q1"))
	g.ApplyResults(map[string]NodeState{"t1": {Output: "late"}})

	n, ok := snap.Node("q1")
	require.True(t, ok)
	assert.Equal(t, "quote", n.TypeID)
	tn, ok := snap.Node("t1")
	require.True(t, ok)
	assert.Nil(t, tn.OutputData)
	assert.Len(t, snap.Connections(), 1)
}

func TestSnapshotConnectionLookups(t *testing.T) {
	g := New(newStubResolver())
	require.NoError(t, g.AddNode(&Node{ID: "t1", TypeID: "trigger"}))
	require.NoError(t, g.AddNode(&Node{ID: "q1", TypeID: "quote"}))
	require.NoError(t, g.AddNode(&Node{ID: "c1", TypeID: "condition"}))
	require.NoError(t, g.Connect(Connection{FromNode: "t1", FromOutput: 0, ToNode: "q1", ToInput: 0}))
	require.NoError(t, g.Connect(Connection{FromNode: "q1", FromOutput: 0, ToNode: "c1", ToInput: 0}))
	require.NoError(t, g.Connect(Connection{FromNode: "q1", FromOutput: 1, ToNode: "c1", ToInput: 1}))

	snap := g.Snapshot()

	assert.Len(t, snap.OutputConnections("q1"), 2)
	assert.Len(t, snap.InputConnections("c1"), 2)

	c, ok := snap.InputConnection("c1", 1)
	require.True(t, ok)
	assert.Equal(t, "q1", c.FromNode)
	assert.Equal(t, 1, c.FromOutput)

	_, ok = snap.InputConnection("c1", 5)
	assert.False(t, ok)
}
