package node

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/graph"
)

// Info summarizes a registered node type for discovery.
type Info struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Inputs   int    `json:"inputs"`
	Outputs  int    `json:"outputs"`
	PluginID string `json:"plugin_id,omitempty"`
}

// Registry is the typed table of node types the engine recognizes, keyed by
// id. It is safe for concurrent use and implements graph.TypeResolver.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register adds a node type. An id collision is a hard rejection, no
// overwrite.
func (r *Registry) Register(t *Type) error {
	if t == nil {
		return errors.WrapInvalid(fmt.Errorf("type cannot be nil"), "Registry", "Register", "validation")
	}
	if err := validateType(t); err != nil {
		return errors.WrapInvalid(err, "Registry", "Register", fmt.Sprintf("validate type %q", t.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.ID]; exists {
		return errors.WrapInvalid(errors.ErrDuplicateNodeType, "Registry", "Register",
			fmt.Sprintf("register type %q", t.ID))
	}
	r.types[t.ID] = t
	return nil
}

// validateType performs the once-at-load descriptor sanity checks so the
// engine never has to re-validate per call.
func validateType(t *Type) error {
	if t.ID == "" {
		return fmt.Errorf("type id is required")
	}
	if t.Title == "" {
		return fmt.Errorf("type %q: title is required", t.ID)
	}
	if t.Execute == nil {
		return fmt.Errorf("type %q: execute function is required", t.ID)
	}
	for i, k := range t.Inputs {
		if !k.Valid() {
			return fmt.Errorf("type %q: input port %d has unknown kind %q", t.ID, i, k)
		}
	}
	for i, k := range t.Outputs {
		if !k.Valid() {
			return fmt.Errorf("type %q: output port %d has unknown kind %q", t.ID, i, k)
		}
	}
	return nil
}

// Resolve returns the node type registered under id.
func (r *Registry) Resolve(id string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[id]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrNodeTypeNotFound, "Registry", "Resolve",
			fmt.Sprintf("resolve type %q", id))
	}
	return t, nil
}

// Ports implements graph.TypeResolver.
func (r *Registry) Ports(typeID string) (inputs, outputs []graph.PortKind, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, found := r.types[typeID]
	if !found {
		return nil, nil, false
	}
	return t.Inputs, t.Outputs, true
}

// Unregister removes a node type and reports whether it was present.
// Existing instances referencing the type become unresolved and are skipped
// at execution time.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.types[id]
	delete(r.types, id)
	return ok
}

// List returns summaries of all registered types sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, Info{
			ID:       t.ID,
			Title:    t.Title,
			Category: t.Category,
			Inputs:   len(t.Inputs),
			Outputs:  len(t.Outputs),
			PluginID: t.PluginID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
