package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/graph"
)

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)

	require.NoError(t, kv.Put(ctx, "a", []byte("one")))
	require.NoError(t, kv.Put(ctx, "b", []byte("two")))

	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	// Overwrite replaces the prior value.
	require.NoError(t, kv.Put(ctx, "a", []byte("uno")))
	got, err = kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), got)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, kv.Delete(ctx, "a"))
	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)

	// Deleting an absent key is a no-op.
	require.NoError(t, kv.Delete(ctx, "a"))
}

func TestMemoryKVIsolatesValueBuffers(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	original := []byte("payload")
	require.NoError(t, kv.Put(ctx, "k", original))
	original[0] = 'X'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got, "stored value must not alias the caller's buffer")

	got[0] = 'Y'
	again, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), again)
}

func TestGraphStoreRoundtrip(t *testing.T) {
	kv := NewMemoryKV()
	s := NewGraphStore(kv)
	ctx := context.Background()

	g := graph.New(nil)
	require.NoError(t, g.AddNode(&graph.Node{
		ID: "t1", TypeID: "trigger", Params: graph.Params{"enabled": true},
	}))
	require.NoError(t, g.AddNode(&graph.Node{ID: "q1", TypeID: "quote"}))
	require.NoError(t, g.Connect(graph.Connection{FromNode: "t1", ToNode: "q1"}))

	require.NoError(t, s.Save(ctx, "default", g))

	restored := graph.New(nil)
	require.NoError(t, s.Load(ctx, "default", restored))
	assert.Len(t, restored.Nodes(), 2)
	assert.Len(t, restored.Connections(), 1)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, names)

	require.NoError(t, s.Delete(ctx, "default"))
	err = s.Load(ctx, "default", restored)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestPluginStoresNamespacing(t *testing.T) {
	kv := NewMemoryKV()
	stores := NewPluginStores(kv)
	ctx := context.Background()

	alpha := stores.For("alpha")
	beta := stores.For("beta")

	require.NoError(t, alpha.Set(ctx, "state", []byte("A")))
	require.NoError(t, beta.Set(ctx, "state", []byte("B")))

	got, err := alpha.Get(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), got, "plugins see only their own keys")

	got, err = beta.Get(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, []byte("B"), got)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.state", "beta.state"}, keys)

	_, err = alpha.Get(ctx, "unset")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)
}
