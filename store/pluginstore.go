package store

import (
	"context"

	"github.com/tomtomtong/comfyTrade/node"
)

// PluginStores hands out per-plugin key-value stores backed by one shared
// KV, namespaced by plugin id so plugins cannot read each other's keys.
type PluginStores struct {
	kv KV
}

// NewPluginStores wraps a KV backend.
func NewPluginStores(kv KV) *PluginStores {
	return &PluginStores{kv: kv}
}

// For returns the store scoped to pluginID.
func (p *PluginStores) For(pluginID string) node.PluginStore {
	return &scopedStore{kv: p.kv, prefix: pluginID + "."}
}

type scopedStore struct {
	kv     KV
	prefix string
}

func (s *scopedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, s.prefix+key)
}

func (s *scopedStore) Set(ctx context.Context, key string, value []byte) error {
	return s.kv.Put(ctx, s.prefix+key, value)
}
