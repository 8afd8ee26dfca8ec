package node

import (
	"fmt"

	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/graph"
)

// Descriptor is the external shape of a plugin-defined node type. Plugins
// hand descriptors to LoadPlugin; validation happens once here, not per
// execution.
type Descriptor struct {
	ID            string
	Title         string
	Category      string
	Inputs        []graph.PortKind
	Outputs       []graph.PortKind
	DefaultParams graph.Params
	Execute       ExecuteFunc
	Validate      ValidateFunc
}

// LoadPlugin converts a descriptor into a registered node type owned by
// pluginID. On success the type is immediately selectable for new instances
// and resolvable during execution. An id collision with any registered type
// is rejected.
func (r *Registry) LoadPlugin(pluginID string, d Descriptor) error {
	if pluginID == "" {
		return errors.WrapInvalid(fmt.Errorf("plugin id is required"), "Registry", "LoadPlugin", "validation")
	}
	if d.Execute == nil {
		return errors.WrapInvalid(fmt.Errorf("descriptor %q: execute is required", d.ID),
			"Registry", "LoadPlugin", "validation")
	}

	t := &Type{
		ID:            d.ID,
		Title:         d.Title,
		Category:      d.Category,
		Inputs:        d.Inputs,
		Outputs:       d.Outputs,
		DefaultParams: d.DefaultParams,
		Execute:       d.Execute,
		Validate:      d.Validate,
		PluginID:      pluginID,
	}
	if t.Category == "" {
		t.Category = "plugin"
	}
	return r.Register(t)
}

// UnloadPlugin removes every node type owned by pluginID and returns how
// many were removed. Instances referencing removed types become unresolved.
func (r *Registry) UnloadPlugin(pluginID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, t := range r.types {
		if t.PluginID != "" && t.PluginID == pluginID {
			delete(r.types, id)
			removed++
		}
	}
	return removed
}
