package store

import (
	"context"

	"github.com/tomtomtong/comfyTrade/graph"
)

// GraphStore persists serialized graph documents by name. The document is
// the JSON export shape produced by graph.Export.
type GraphStore struct {
	kv KV
}

// NewGraphStore wraps a KV backend.
func NewGraphStore(kv KV) *GraphStore {
	return &GraphStore{kv: kv}
}

// Save serializes the graph and stores it under name.
func (s *GraphStore) Save(ctx context.Context, name string, g *graph.Graph) error {
	data, err := g.ExportJSON()
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, name, data)
}

// Load reads the named document and imports it into g, replacing g's
// contents wholesale. Node types unknown to the resolver are imported
// flagged as unresolved rather than dropped.
func (s *GraphStore) Load(ctx context.Context, name string, g *graph.Graph) error {
	data, err := s.kv.Get(ctx, name)
	if err != nil {
		return err
	}
	return g.ImportJSON(data)
}

// Delete removes the named document.
func (s *GraphStore) Delete(ctx context.Context, name string) error {
	return s.kv.Delete(ctx, name)
}

// List returns the stored document names in sorted order.
func (s *GraphStore) List(ctx context.Context) ([]string, error) {
	return s.kv.Keys(ctx)
}
